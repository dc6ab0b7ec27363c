package repository

import (
	"manhaj_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) WithTx(tx *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: tx}
}

// Create 依赖 (student_id, course_id) 唯一索引拒绝重复报名
func (r *EnrollmentRepository) Create(enrollment *model.Enrollment) error {
	return r.DB.Create(enrollment).Error
}

func (r *EnrollmentRepository) FindByID(id uint) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.Preload("Course").Preload("Student").First(&enrollment, id).Error
	return &enrollment, err
}

// Confirm 只有 pending 状态可以被确认，返回是否有记录被更新
func (r *EnrollmentRepository) Confirm(id, adminID uint, at time.Time) (bool, error) {
	res := r.DB.Model(&model.Enrollment{}).
		Where("id = ? AND status = ?", id, model.EnrollmentPending).
		Updates(map[string]interface{}{
			"status":       model.EnrollmentConfirmed,
			"confirmed_at": at,
			"confirmed_by": adminID,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *EnrollmentRepository) ListByStudent(studentID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Preload("Course").Preload("Course.Teacher").Preload("Course.Category").
		Where("student_id = ?", studentID).
		Order("created_at DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) ListByCourse(courseID uint) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.Preload("Student").
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) List(status model.EnrollmentStatus, offset, limit int) ([]model.Enrollment, int64, error) {
	var enrollments []model.Enrollment
	var total int64

	query := r.DB.Model(&model.Enrollment{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Student").Preload("Course").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&enrollments).Error
	return enrollments, total, err
}

// StudentIDsByCourse 课程的报名学生；statuses 为空时返回全部状态
func (r *EnrollmentRepository) StudentIDsByCourse(courseID uint, statuses ...model.EnrollmentStatus) ([]uint, error) {
	var ids []uint
	query := r.DB.Model(&model.Enrollment{}).Where("course_id = ?", courseID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	err := query.Order("id ASC").Pluck("student_id", &ids).Error
	return ids, err
}

// AccessibleCourseIDs 学生可以观看内容的课程
func (r *EnrollmentRepository) AccessibleCourseIDs(studentID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Enrollment{}).
		Where("student_id = ? AND status IN ?", studentID,
			[]model.EnrollmentStatus{model.EnrollmentConfirmed, model.EnrollmentFree}).
		Pluck("course_id", &ids).Error
	return ids, err
}
