package model

import (
	"time"
)

type UserRole string

const (
	Student    UserRole = "student"
	Teacher    UserRole = "teacher"
	SuperAdmin UserRole = "superadmin"
)

func (r UserRole) Valid() bool {
	switch r {
	case Student, Teacher, SuperAdmin:
		return true
	}
	return false
}

// swagger:model User
type User struct {
	BaseModel
	FullName  string     `gorm:"size:100;not null" json:"fullName"`
	Email     string     `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;not null;default:'student';index" json:"role"`
	Phone     *string    `gorm:"size:32" json:"phone,omitempty"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// PasswordResetToken 只保存令牌的 SHA-256，明文只出现在邮件里
type PasswordResetToken struct {
	BaseModel
	UserID    uint       `gorm:"index;not null" json:"userId"`
	User      *User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TokenHash string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"index;not null" json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}
