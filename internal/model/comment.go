package model

// LessonComment 两级结构：问题（ParentCommentID 为空）与回复
// swagger:model LessonComment
type LessonComment struct {
	BaseModel
	LessonID        uint    `gorm:"index;not null" json:"lessonId"`
	Lesson          *Lesson `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	UserID          uint    `gorm:"index;not null" json:"userId"`
	User            *User   `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Content         string  `gorm:"type:text;not null" json:"content"`
	ParentCommentID *uint   `gorm:"index" json:"parentCommentId"`
}

func (LessonComment) TableName() string {
	return "lesson_comments"
}

func (c *LessonComment) IsTopLevel() bool {
	return c.ParentCommentID == nil
}
