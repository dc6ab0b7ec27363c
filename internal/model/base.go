package model

import (
	"time"
)

// BaseModel 所有表的公共字段。记录为物理删除，级联由外键约束完成
// swagger:model
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AllModels 需要迁移的全部模型，按依赖顺序排列
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&PasswordResetToken{},
		&Category{},
		&Course{},
		&Lesson{},
		&Enrollment{},
		&LessonProgress{},
		&Quiz{},
		&QuizSubmission{},
		&QuizSubmissionImage{},
		&LessonComment{},
		&Notification{},
		&CourseReview{},
		&CourseAnnouncement{},
		&PlatformSetting{},
	}
}
