package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "pending"
	EnrollmentConfirmed EnrollmentStatus = "confirmed"
	EnrollmentFree      EnrollmentStatus = "free"
)

// GrantsAccess confirmed 与 free 可以观看课程内容，pending 不可以
func (s EnrollmentStatus) GrantsAccess() bool {
	return s == EnrollmentConfirmed || s == EnrollmentFree
}

// InitialEnrollmentStatus 报名时的初始状态只由课程是否收费决定
func InitialEnrollmentStatus(course *Course) EnrollmentStatus {
	if course.RequiresPayment() {
		return EnrollmentPending
	}
	return EnrollmentFree
}

// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	StudentID   uint             `gorm:"uniqueIndex:idx_enrollment_student_course;not null" json:"studentId"`
	Student     *User            `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"student,omitempty"`
	CourseID    uint             `gorm:"uniqueIndex:idx_enrollment_student_course;index;not null" json:"courseId"`
	Course      *Course          `gorm:"constraint:OnDelete:CASCADE" json:"course,omitempty"`
	Status      EnrollmentStatus `gorm:"size:20;not null;index" json:"status"`
	ConfirmedAt *time.Time       `json:"confirmedAt,omitempty"`
	ConfirmedBy *uint            `json:"confirmedBy,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// swagger:model LessonProgress
type LessonProgress struct {
	BaseModel
	StudentID    uint       `gorm:"uniqueIndex:idx_progress_student_lesson;not null" json:"studentId"`
	Student      *User      `gorm:"foreignKey:StudentID;constraint:OnDelete:CASCADE" json:"-"`
	LessonID     uint       `gorm:"uniqueIndex:idx_progress_student_lesson;not null" json:"lessonId"`
	Lesson       *Lesson    `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CourseID     uint       `gorm:"index;not null" json:"courseId"`
	Completed    bool       `gorm:"default:false" json:"completed"`
	LastPosition int        `gorm:"default:0" json:"lastPosition"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}
