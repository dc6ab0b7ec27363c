package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type NotificationType string

const (
	NotifyNewQuestion         NotificationType = "new_question"
	NotifyQuizSubmission      NotificationType = "quiz_submission"
	NotifyReply               NotificationType = "reply"
	NotifyNewContent          NotificationType = "new_content"
	NotifyEnrollmentConfirmed NotificationType = "enrollment_confirmed"
	NotifyNewEnrollment       NotificationType = "new_enrollment"
	NotifyEnrollmentRequest   NotificationType = "enrollment_request"
	NotifyGradeReceived       NotificationType = "grade_received"
)

// swagger:model Notification
type Notification struct {
	BaseModel
	UserID    uint             `gorm:"index;not null" json:"userId"`
	User      *User            `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	RelatedID *uint            `json:"relatedId"`
	Metadata  datatypes.JSON   `json:"metadata"`
	Read      bool             `gorm:"default:false;index" json:"read"`
	ReadAt    *time.Time       `json:"readAt,omitempty"`
}

func (Notification) TableName() string {
	return "notifications"
}

var (
	ErrEmptyMetadata           = errors.New("notification metadata is empty")
	ErrUnknownNotificationType = errors.New("unknown notification type")
)

// NotificationPayload 每种通知类型对应一个强类型载荷
type NotificationPayload interface {
	NotificationType() NotificationType
	Related() *uint
}

type QuestionPayload struct {
	CourseID  uint `json:"courseId"`
	LessonID  uint `json:"lessonId"`
	CommentID uint `json:"commentId"`
}

func (QuestionPayload) NotificationType() NotificationType { return NotifyNewQuestion }
func (p QuestionPayload) Related() *uint                  { return &p.CommentID }

type ReplyPayload struct {
	CourseID  uint `json:"courseId"`
	LessonID  uint `json:"lessonId"`
	CommentID uint `json:"commentId"`
}

func (ReplyPayload) NotificationType() NotificationType { return NotifyReply }
func (p ReplyPayload) Related() *uint                  { return &p.CommentID }

type QuizSubmissionPayload struct {
	QuizID       uint `json:"quizId"`
	SubmissionID uint `json:"submissionId"`
	CourseID     uint `json:"courseId"`
}

func (QuizSubmissionPayload) NotificationType() NotificationType { return NotifyQuizSubmission }
func (p QuizSubmissionPayload) Related() *uint                  { return &p.SubmissionID }

type GradePayload struct {
	QuizID       uint    `json:"quizId"`
	SubmissionID uint    `json:"submissionId"`
	Score        float64 `json:"score"`
}

func (GradePayload) NotificationType() NotificationType { return NotifyGradeReceived }
func (p GradePayload) Related() *uint                  { return &p.SubmissionID }

type NewContentPayload struct {
	CourseID       uint  `json:"courseId"`
	LessonID       *uint `json:"lessonId,omitempty"`
	QuizID         *uint `json:"quizId,omitempty"`
	AnnouncementID *uint `json:"announcementId,omitempty"`
}

func (NewContentPayload) NotificationType() NotificationType { return NotifyNewContent }
func (p NewContentPayload) Related() *uint                  { return &p.CourseID }

type EnrollmentConfirmedPayload struct {
	CourseID     uint `json:"courseId"`
	EnrollmentID uint `json:"enrollmentId"`
}

func (EnrollmentConfirmedPayload) NotificationType() NotificationType {
	return NotifyEnrollmentConfirmed
}
func (p EnrollmentConfirmedPayload) Related() *uint { return &p.CourseID }

type NewEnrollmentPayload struct {
	CourseID     uint `json:"courseId"`
	EnrollmentID uint `json:"enrollmentId"`
	StudentID    uint `json:"studentId"`
}

func (NewEnrollmentPayload) NotificationType() NotificationType { return NotifyNewEnrollment }
func (p NewEnrollmentPayload) Related() *uint                  { return &p.EnrollmentID }

type EnrollmentRequestPayload struct {
	CourseID     uint `json:"courseId"`
	EnrollmentID uint `json:"enrollmentId"`
	StudentID    uint `json:"studentId"`
}

func (EnrollmentRequestPayload) NotificationType() NotificationType { return NotifyEnrollmentRequest }
func (p EnrollmentRequestPayload) Related() *uint                  { return &p.EnrollmentID }

// NewNotification 编码载荷并构造一条待写入的通知
func NewNotification(recipientID uint, title, message string, payload NotificationPayload) (*Notification, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Notification{
		UserID:    recipientID,
		Type:      payload.NotificationType(),
		Title:     title,
		Message:   message,
		RelatedID: payload.Related(),
		Metadata:  datatypes.JSON(raw),
	}, nil
}

// DecodePayload 按类型解析 metadata；旧数据可能为空或格式错误，调用方需要回退
func DecodePayload(t NotificationType, raw []byte) (NotificationPayload, error) {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == `""` {
		return nil, ErrEmptyMetadata
	}

	var (
		payload NotificationPayload
		err     error
	)
	switch t {
	case NotifyNewQuestion:
		var p QuestionPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case NotifyReply:
		var p ReplyPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case NotifyQuizSubmission:
		var p QuizSubmissionPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case NotifyGradeReceived:
		var p GradePayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case NotifyNewContent:
		var p NewContentPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case NotifyEnrollmentConfirmed:
		var p EnrollmentConfirmedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case NotifyNewEnrollment:
		var p NewEnrollmentPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case NotifyEnrollmentRequest:
		var p EnrollmentRequestPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNotificationType, t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", t, err)
	}
	return payload, nil
}
