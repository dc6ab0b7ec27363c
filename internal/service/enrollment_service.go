package service

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
	"unicode"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/util"
	"manhaj_backend/pkg/monitoring"

	"gorm.io/gorm"
)

type EnrollmentService struct {
	DB             *gorm.DB
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	ProgressRepo   *repository.ProgressRepository
	UserRepo       *repository.UserRepository
	Settings       *SettingService
	Notifier       *NotificationService
}

func NewEnrollmentService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progressRepo *repository.ProgressRepository,
	userRepo *repository.UserRepository,
	settings *SettingService,
	notifier *NotificationService,
) *EnrollmentService {
	return &EnrollmentService{
		DB:             db,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		ProgressRepo:   progressRepo,
		UserRepo:       userRepo,
		Settings:       settings,
		Notifier:       notifier,
	}
}

// EnrollResult 报名结果；pending 时附带 WhatsApp 联系链接
type EnrollResult struct {
	Enrollment   *model.Enrollment `json:"enrollment"`
	Status       string            `json:"status"`
	WhatsAppLink string            `json:"whatsappLink,omitempty"`
}

// Enroll 免费课程直接生效，收费课程进入 pending 等待超级管理员确认。
// 任何状态下重复报名都返回 Conflict
func (s *EnrollmentService) Enroll(p *access.Policy, courseID uint) (*EnrollResult, error) {
	if !p.IsStudent() {
		return nil, util.NewForbiddenError("Only students can enroll in courses")
	}
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, util.Normalize(err)
	}

	enrollment := &model.Enrollment{
		StudentID: p.UserID,
		CourseID:  course.ID,
		Status:    model.InitialEnrollmentStatus(course),
	}

	err = s.Notifier.InTx(s.DB, func(tx *gorm.DB) error {
		if err := s.EnrollmentRepo.WithTx(tx).Create(enrollment); err != nil {
			return err
		}

		if enrollment.Status == model.EnrollmentFree {
			return s.Notifier.Notify(tx, []uint{course.TeacherID},
				"New enrollment",
				fmt.Sprintf("A student enrolled in %s", course.Title),
				model.NewEnrollmentPayload{CourseID: course.ID, EnrollmentID: enrollment.ID, StudentID: p.UserID})
		}

		admins, err := s.UserRepo.WithTx(tx).IDsByRole(model.SuperAdmin)
		if err != nil {
			return err
		}
		return s.Notifier.Notify(tx, admins,
			"Enrollment request",
			fmt.Sprintf("A student requested access to %s", course.Title),
			model.EnrollmentRequestPayload{CourseID: course.ID, EnrollmentID: enrollment.ID, StudentID: p.UserID})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.NewConflictError("You are already enrolled in this course")
		}
		return nil, err
	}
	monitoring.EnrollmentsCreated.WithLabelValues(string(enrollment.Status)).Inc()

	result := &EnrollResult{Enrollment: enrollment, Status: string(enrollment.Status)}
	if enrollment.Status.GrantsAccess() {
		p.Grant(course.ID)
	} else {
		number, err := s.Settings.Get(model.SettingWhatsAppNumber)
		if err != nil {
			return nil, err
		}
		result.WhatsAppLink = WhatsAppLink(number, course)
	}
	return result, nil
}

// WhatsAppLink 手动付款联系链接，号码未配置时为空
func WhatsAppLink(number string, course *model.Course) string {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, number)
	if digits == "" {
		return ""
	}
	text := fmt.Sprintf("Hello, I would like to enroll in the course \"%s\" (ID %d, price %.2f).",
		course.Title, course.ID, course.EffectivePrice())
	return fmt.Sprintf("https://wa.me/%s?text=%s", digits, url.QueryEscape(text))
}

// Confirm 只允许 pending -> confirmed
func (s *EnrollmentService) Confirm(p *access.Policy, enrollmentID uint) (*model.Enrollment, error) {
	if !p.IsSuperAdmin() {
		return nil, util.NewForbiddenError("Only the superadmin can confirm enrollments")
	}

	var enrollment *model.Enrollment
	err := s.Notifier.InTx(s.DB, func(tx *gorm.DB) error {
		repo := s.EnrollmentRepo.WithTx(tx)
		current, err := repo.FindByID(enrollmentID)
		if err != nil {
			return util.Normalize(err)
		}
		if current.Status != model.EnrollmentPending {
			return util.NewValidationError(fmt.Sprintf("Enrollment is %s and cannot be confirmed", current.Status))
		}

		now := time.Now()
		updated, err := repo.Confirm(enrollmentID, p.UserID, now)
		if err != nil {
			return err
		}
		if !updated {
			return util.NewValidationError("Enrollment is no longer pending")
		}
		current.Status = model.EnrollmentConfirmed
		current.ConfirmedAt = &now
		current.ConfirmedBy = &p.UserID
		enrollment = current

		course := current.Course
		if err := s.Notifier.Notify(tx, []uint{current.StudentID},
			"Enrollment confirmed",
			fmt.Sprintf("Your enrollment in %s has been confirmed", course.Title),
			model.EnrollmentConfirmedPayload{CourseID: course.ID, EnrollmentID: current.ID}); err != nil {
			return err
		}
		return s.Notifier.Notify(tx, []uint{course.TeacherID},
			"New enrollment",
			fmt.Sprintf("A student joined %s", course.Title),
			model.NewEnrollmentPayload{CourseID: course.ID, EnrollmentID: current.ID, StudentID: current.StudentID})
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

// UpdateStatus 管理端状态更新入口，目前只接受 confirmed
func (s *EnrollmentService) UpdateStatus(p *access.Policy, enrollmentID uint, status model.EnrollmentStatus) (*model.Enrollment, error) {
	if status != model.EnrollmentConfirmed {
		return nil, util.NewValidationError("Only pending enrollments can be moved to confirmed")
	}
	return s.Confirm(p, enrollmentID)
}

func (s *EnrollmentService) List(status model.EnrollmentStatus, page, limit int) ([]model.Enrollment, int64, error) {
	switch status {
	case "", model.EnrollmentPending, model.EnrollmentConfirmed, model.EnrollmentFree:
	default:
		return nil, 0, util.NewValidationError("invalid status")
	}
	return s.EnrollmentRepo.List(status, (page-1)*limit, limit)
}

// Percentage 四舍五入的完成百分比，没有课时为 0
func Percentage(completed, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(completed) * 100 / float64(total)))
}

type MyEnrollment struct {
	model.Enrollment
	TotalLessons     int64 `json:"totalLessons"`
	CompletedLessons int64 `json:"completedLessons"`
	Progress         int   `json:"progress"`
}

// MyEnrollments 学生的报名及学习进度
func (s *EnrollmentService) MyEnrollments(p *access.Policy) ([]MyEnrollment, error) {
	enrollments, err := s.EnrollmentRepo.ListByStudent(p.UserID)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(enrollments))
	for _, e := range enrollments {
		ids = append(ids, e.CourseID)
	}
	stats, err := s.CourseRepo.StatsFor(ids)
	if err != nil {
		return nil, err
	}
	completed, err := s.ProgressRepo.CompletedByCourse(p.UserID)
	if err != nil {
		return nil, err
	}

	result := make([]MyEnrollment, 0, len(enrollments))
	for _, e := range enrollments {
		total := stats[e.CourseID].LessonCount
		done := completed[e.CourseID]
		result = append(result, MyEnrollment{
			Enrollment:       e,
			TotalLessons:     total,
			CompletedLessons: done,
			Progress:         Percentage(done, total),
		})
	}
	return result, nil
}

type CourseStudent struct {
	Enrollment       model.Enrollment `json:"enrollment"`
	CompletedLessons int64            `json:"completedLessons"`
	Progress         int              `json:"progress"`
}

// CourseStudents 课程所有者查看报名学生及进度
func (s *EnrollmentService) CourseStudents(p *access.Policy, courseID uint) ([]CourseStudent, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.CanManageCourse(course) {
		return nil, util.NewForbiddenError("You do not own this course")
	}

	enrollments, err := s.EnrollmentRepo.ListByCourse(courseID)
	if err != nil {
		return nil, err
	}
	stats, err := s.CourseRepo.StatsFor([]uint{courseID})
	if err != nil {
		return nil, err
	}
	completed, err := s.ProgressRepo.CompletedByStudent(courseID)
	if err != nil {
		return nil, err
	}

	total := stats[courseID].LessonCount
	result := make([]CourseStudent, 0, len(enrollments))
	for _, e := range enrollments {
		done := completed[e.StudentID]
		result = append(result, CourseStudent{
			Enrollment:       e,
			CompletedLessons: done,
			Progress:         Percentage(done, total),
		})
	}
	return result, nil
}
