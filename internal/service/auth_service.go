package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"manhaj_backend/internal/config"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/util"
	"manhaj_backend/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const resetTokenTTL = time.Hour

var errInvalidCredentials = util.NewUnauthorizedError("Invalid email or password")

// 用户不存在时也执行一次哈希比较，避免通过响应时间判断邮箱是否注册
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("manhaj-timing-guard"), bcrypt.DefaultCost)

type AuthService struct {
	DB        *gorm.DB
	UserRepo  *repository.UserRepository
	ResetRepo *repository.PasswordResetRepository
	Mailer    Mailer
	Cfg       *config.Config
	// bcrypt 代价，测试中可以调低
	HashCost int
}

func NewAuthService(db *gorm.DB, userRepo *repository.UserRepository, resetRepo *repository.PasswordResetRepository, mailer Mailer, cfg *config.Config) *AuthService {
	return &AuthService{
		DB:        db,
		UserRepo:  userRepo,
		ResetRepo: resetRepo,
		Mailer:    mailer,
		Cfg:       cfg,
		HashCost:  bcrypt.DefaultCost,
	}
}

// AuthResult 登录或注册成功后返回给客户端
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    *string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.HashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Register 自助注册只能得到学生身份
func (s *AuthService) Register(in RegisterInput) (*AuthResult, error) {
	hashed, err := s.hash(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		FullName: strings.TrimSpace(in.FullName),
		Email:    normalizeEmail(in.Email),
		Password: hashed,
		Role:     model.Student,
		Phone:    in.Phone,
	}
	if err := s.UserRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.NewConflictError("Email is already registered")
		}
		return nil, err
	}

	return s.issue(user)
}

// Login 邮箱不存在与密码错误返回相同的错误
func (s *AuthService) Login(identifier, password string) (*AuthResult, error) {
	user, err := s.UserRepo.FindByEmail(normalizeEmail(identifier))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, errInvalidCredentials
	}

	now := time.Now()
	if err := s.UserRepo.UpdateLastLogin(user.ID, now); err != nil {
		logger.Log.Warn("update last login failed", zap.Uint("userId", user.ID), zap.Error(err))
	}
	user.LastLogin = &now

	return s.issue(user)
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// CreateTeacher 生成一次性明文密码返回给超级管理员，数据库只保存哈希
func (s *AuthService) CreateTeacher(email, fullName string, phone *string) (*model.User, string, error) {
	password, err := util.GeneratePassword(util.TeacherPasswordLength)
	if err != nil {
		return nil, "", err
	}
	hashed, err := s.hash(password)
	if err != nil {
		return nil, "", err
	}

	user := &model.User{
		FullName: strings.TrimSpace(fullName),
		Email:    normalizeEmail(email),
		Password: hashed,
		Role:     model.Teacher,
		Phone:    phone,
	}
	if err := s.UserRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", util.NewConflictError("Email is already registered")
		}
		return nil, "", err
	}
	return user, password, nil
}

// RequestPasswordReset 邮箱是否存在都不会体现在返回值里
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.UserRepo.FindByEmail(normalizeEmail(email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	token, err := util.GenerateToken()
	if err != nil {
		return err
	}
	record := &model.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: util.HashToken(token),
		ExpiresAt: time.Now().Add(resetTokenTTL),
	}
	if err := s.ResetRepo.Create(record); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", strings.TrimRight(s.Cfg.Mail.FrontendURL, "/"), token)
	msg := EmailMessage{
		ToName:  user.FullName,
		ToEmail: user.Email,
		Subject: "Reset your password / إعادة تعيين كلمة المرور",
		TextContent: fmt.Sprintf("Use the link below to reset your password. It expires in one hour.\n"+
			"استخدم الرابط التالي لإعادة تعيين كلمة المرور. صالح لمدة ساعة واحدة.\n\n%s\n", link),
		HTMLContent: fmt.Sprintf(`<p>Use the link below to reset your password. It expires in one hour.</p>`+
			`<p dir="rtl">استخدم الرابط التالي لإعادة تعيين كلمة المرور. صالح لمدة ساعة واحدة.</p>`+
			`<p><a href="%s">%s</a></p>`, link, link),
	}
	if err := s.Mailer.Send(ctx, msg); err != nil {
		// 发送失败不影响响应，避免泄露邮箱是否存在
		logger.Log.Error("send password reset email failed", zap.Uint("userId", user.ID), zap.Error(err))
	}
	return nil
}

// ResetPassword 令牌只能使用一次，过期或已使用都返回校验错误
func (s *AuthService) ResetPassword(token, newPassword string) error {
	if token == "" {
		return util.NewValidationError("Invalid or expired reset token")
	}
	hashed, err := s.hash(newPassword)
	if err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		record, err := s.ResetRepo.WithTx(tx).Redeem(util.HashToken(token), time.Now())
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return util.NewValidationError("Invalid or expired reset token")
			}
			return err
		}
		return s.UserRepo.WithTx(tx).UpdatePassword(record.UserID, hashed)
	})
}

func (s *AuthService) Profile(userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	return user, nil
}

// UpdateProfile 角色与邮箱不可修改
func (s *AuthService) UpdateProfile(userID uint, fullName string, phone *string) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if name := strings.TrimSpace(fullName); name != "" {
		user.FullName = name
	}
	if phone != nil {
		trimmed := strings.TrimSpace(*phone)
		if trimmed == "" {
			user.Phone = nil
		} else {
			user.Phone = &trimmed
		}
	}
	if err := s.UserRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) ChangePassword(userID uint, current, next string) error {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return util.Normalize(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return util.NewValidationError("Current password is incorrect")
	}
	hashed, err := s.hash(next)
	if err != nil {
		return err
	}
	return s.UserRepo.UpdatePassword(userID, hashed)
}
