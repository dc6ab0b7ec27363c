package repository

import (
	"manhaj_backend/internal/model"

	"gorm.io/gorm"
)

type ReviewRepository struct {
	DB *gorm.DB
}

func NewReviewRepository(db *gorm.DB) *ReviewRepository {
	return &ReviewRepository{DB: db}
}

func (r *ReviewRepository) Create(review *model.CourseReview) error {
	return r.DB.Create(review).Error
}

func (r *ReviewRepository) ListByCourse(courseID uint) ([]model.CourseReview, error) {
	var reviews []model.CourseReview
	err := r.DB.Preload("Student").
		Where("course_id = ?", courseID).
		Order("created_at DESC").
		Find(&reviews).Error
	return reviews, err
}

func (r *ReviewRepository) AverageRating(courseID uint) (float64, error) {
	var avg float64
	err := r.DB.Model(&model.CourseReview{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(AVG(rating), 0)").
		Scan(&avg).Error
	return avg, err
}

type AnnouncementRepository struct {
	DB *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) *AnnouncementRepository {
	return &AnnouncementRepository{DB: db}
}

func (r *AnnouncementRepository) WithTx(tx *gorm.DB) *AnnouncementRepository {
	return &AnnouncementRepository{DB: tx}
}

func (r *AnnouncementRepository) Create(announcement *model.CourseAnnouncement) error {
	return r.DB.Create(announcement).Error
}

func (r *AnnouncementRepository) ListByCourse(courseID uint) ([]model.CourseAnnouncement, error) {
	var announcements []model.CourseAnnouncement
	err := r.DB.Where("course_id = ?", courseID).Order("created_at DESC").Find(&announcements).Error
	return announcements, err
}
