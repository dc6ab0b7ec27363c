package service

import (
	"errors"
	"fmt"
	"strings"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/util"

	"gorm.io/gorm"
)

type ReviewService struct {
	DB               *gorm.DB
	CourseRepo       *repository.CourseRepository
	ReviewRepo       *repository.ReviewRepository
	AnnouncementRepo *repository.AnnouncementRepository
	EnrollmentRepo   *repository.EnrollmentRepository
	Notifier         *NotificationService
}

func NewReviewService(
	db *gorm.DB,
	courseRepo *repository.CourseRepository,
	reviewRepo *repository.ReviewRepository,
	announcementRepo *repository.AnnouncementRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	notifier *NotificationService,
) *ReviewService {
	return &ReviewService{
		DB:               db,
		CourseRepo:       courseRepo,
		ReviewRepo:       reviewRepo,
		AnnouncementRepo: announcementRepo,
		EnrollmentRepo:   enrollmentRepo,
		Notifier:         notifier,
	}
}

// CreateReview 有访问权限的学生评价课程，每人一次
func (s *ReviewService) CreateReview(p *access.Policy, courseID uint, rating int, comment string) (*model.CourseReview, error) {
	if rating < 1 || rating > 5 {
		return nil, util.NewValidationError("rating must be between 1 and 5")
	}
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.IsStudent() || !p.CanViewContent(course) {
		return nil, util.NewForbiddenError("Only enrolled students can review this course")
	}

	review := &model.CourseReview{
		CourseID:  courseID,
		StudentID: p.UserID,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
	}
	if err := s.ReviewRepo.Create(review); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.NewConflictError("You have already reviewed this course")
		}
		return nil, err
	}
	return review, nil
}

type ReviewList struct {
	Reviews       []model.CourseReview `json:"reviews"`
	AverageRating float64              `json:"averageRating"`
	Count         int                  `json:"count"`
}

func (s *ReviewService) ListReviews(courseID uint) (*ReviewList, error) {
	if _, err := s.CourseRepo.FindByID(courseID); err != nil {
		return nil, util.Normalize(err)
	}
	reviews, err := s.ReviewRepo.ListByCourse(courseID)
	if err != nil {
		return nil, err
	}
	avg, err := s.ReviewRepo.AverageRating(courseID)
	if err != nil {
		return nil, err
	}
	return &ReviewList{Reviews: reviews, AverageRating: avg, Count: len(reviews)}, nil
}

// CreateAnnouncement 课程所有者发布公告，通知状态为 confirmed/free 的学生
func (s *ReviewService) CreateAnnouncement(p *access.Policy, courseID uint, title, content string) (*model.CourseAnnouncement, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.OwnsCourse(course) {
		return nil, util.NewForbiddenError("You do not own this course")
	}
	title, content = strings.TrimSpace(title), strings.TrimSpace(content)
	if title == "" || content == "" {
		return nil, util.NewValidationError("title and content are required")
	}

	announcement := &model.CourseAnnouncement{
		CourseID:  courseID,
		TeacherID: p.UserID,
		Title:     title,
		Content:   content,
	}
	err = s.Notifier.InTx(s.DB, func(tx *gorm.DB) error {
		if err := s.AnnouncementRepo.WithTx(tx).Create(announcement); err != nil {
			return err
		}
		students, err := s.EnrollmentRepo.WithTx(tx).StudentIDsByCourse(courseID,
			model.EnrollmentConfirmed, model.EnrollmentFree)
		if err != nil {
			return err
		}
		return s.Notifier.Notify(tx, students,
			title,
			fmt.Sprintf("New announcement in %s", course.Title),
			model.NewContentPayload{CourseID: courseID, AnnouncementID: &announcement.ID})
	})
	if err != nil {
		return nil, err
	}
	return announcement, nil
}

func (s *ReviewService) ListAnnouncements(p *access.Policy, courseID uint) ([]model.CourseAnnouncement, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.CanViewContent(course) {
		return nil, util.NewForbiddenError("You do not have access to this course")
	}
	return s.AnnouncementRepo.ListByCourse(courseID)
}
