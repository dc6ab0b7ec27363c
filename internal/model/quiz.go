package model

import "time"

// swagger:model Quiz
type Quiz struct {
	BaseModel
	LessonID    uint       `gorm:"index;not null" json:"lessonId"`
	Lesson      *Lesson    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	IsActive    bool       `gorm:"default:true" json:"isActive"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// AcceptsSubmissions 测验已开启且未过截止时间
func (q *Quiz) AcceptsSubmissions(now time.Time) bool {
	if !q.IsActive {
		return false
	}
	return q.Deadline == nil || now.Before(*q.Deadline)
}

// swagger:model QuizSubmission
type QuizSubmission struct {
	BaseModel
	QuizID    uint                  `gorm:"uniqueIndex:idx_submission_quiz_student;not null" json:"quizId"`
	Quiz      *Quiz                 `gorm:"constraint:OnDelete:CASCADE" json:"quiz,omitempty"`
	StudentID uint                  `gorm:"uniqueIndex:idx_submission_quiz_student;not null;index" json:"studentId"`
	Student   *User                 `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"student,omitempty"`
	Images    []QuizSubmissionImage `gorm:"foreignKey:SubmissionID;constraint:OnDelete:CASCADE" json:"images"`
	Score     *float64              `gorm:"type:decimal(5,2)" json:"score"`
	Feedback  *string               `gorm:"type:text" json:"feedback"`
	GradedAt  *time.Time            `json:"gradedAt"`
	GradedBy  *uint                 `json:"gradedBy,omitempty"`
}

func (QuizSubmission) TableName() string {
	return "quiz_submissions"
}

// QuizSubmissionImage 保留期过后图片被删除，StorageKey 与 URL 置空但记录保留
type QuizSubmissionImage struct {
	BaseModel
	SubmissionID uint    `gorm:"index;not null" json:"submissionId"`
	StorageKey   *string `gorm:"size:255" json:"-"`
	URL          *string `gorm:"size:500" json:"url"`
}

func (QuizSubmissionImage) TableName() string {
	return "quiz_submission_images"
}
