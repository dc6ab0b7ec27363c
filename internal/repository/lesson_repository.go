package repository

import (
	"manhaj_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LessonRepository struct {
	DB *gorm.DB
}

func NewLessonRepository(db *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: db}
}

func (r *LessonRepository) WithTx(tx *gorm.DB) *LessonRepository {
	return &LessonRepository{DB: tx}
}

func (r *LessonRepository) Create(lesson *model.Lesson) error {
	return r.DB.Create(lesson).Error
}

// NextOrder 课程内下一个课时序号（当前最大值加一）
func (r *LessonRepository) NextOrder(courseID uint) (int, error) {
	var maxOrder int
	err := r.DB.Model(&model.Lesson{}).
		Where("course_id = ?", courseID).
		Select("COALESCE(MAX(lesson_order), 0)").
		Scan(&maxOrder).Error
	return maxOrder + 1, err
}

// FindByID 同时加载所属课程，便于做权限判断
func (r *LessonRepository) FindByID(id uint) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.DB.Preload("Course").First(&lesson, id).Error
	return &lesson, err
}

func (r *LessonRepository) ListByCourse(courseID uint) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.DB.Where("course_id = ?", courseID).Order("lesson_order ASC").Find(&lessons).Error
	return lessons, err
}

func (r *LessonRepository) IDsByCourse(courseID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Lesson{}).Where("course_id = ?", courseID).Order("lesson_order ASC").Pluck("id", &ids).Error
	return ids, err
}

func (r *LessonRepository) CountByCourse(courseID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Lesson{}).Where("course_id = ?", courseID).Count(&count).Error
	return count, err
}

func (r *LessonRepository) Update(lesson *model.Lesson) error {
	return r.DB.Model(lesson).
		Select("Title", "Description", "VideoURL", "Duration").
		Omit(clause.Associations).
		Updates(lesson).Error
}

func (r *LessonRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Lesson{}, id).Error
}

// Reorder 按给定顺序重排课时。先整体平移到负数区间，避免唯一索引冲突
func (r *LessonRepository) Reorder(courseID uint, orderedIDs []uint) error {
	if err := r.DB.Model(&model.Lesson{}).
		Where("course_id = ?", courseID).
		Update("lesson_order", gorm.Expr("-lesson_order")).Error; err != nil {
		return err
	}
	for i, id := range orderedIDs {
		if err := r.DB.Model(&model.Lesson{}).
			Where("id = ? AND course_id = ?", id, courseID).
			Update("lesson_order", i+1).Error; err != nil {
			return err
		}
	}
	return nil
}
