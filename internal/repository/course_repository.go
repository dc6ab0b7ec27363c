package repository

import (
	"manhaj_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) WithTx(tx *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: tx}
}

// CourseFilter 课程列表筛选条件
type CourseFilter struct {
	CategoryID uint
	TeacherID  uint
	Search     string
}

// CourseStats 课程列表附带的统计
type CourseStats struct {
	CourseID        uint    `json:"-"`
	LessonCount     int64   `json:"lessonCount"`
	EnrollmentCount int64   `json:"enrollmentCount"`
	AverageRating   float64 `json:"averageRating"`
	ReviewCount     int64   `json:"reviewCount"`
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.Preload("Teacher").Preload("Category").First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) FindBySlug(slug string) (*model.Course, error) {
	var course model.Course
	err := r.DB.Preload("Teacher").Preload("Category").Where("slug = ?", slug).First(&course).Error
	return &course, err
}

func (r *CourseRepository) SlugExists(slug string) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Course{}).Where("slug = ?", slug).Count(&count).Error
	return count > 0, err
}

func (r *CourseRepository) UpdateSlug(id uint, slug string) error {
	return r.DB.Model(&model.Course{}).Where("id = ?", id).Update("slug", slug).Error
}

func (r *CourseRepository) Update(course *model.Course) error {
	return r.DB.Model(course).
		Select("Title", "Description", "CategoryID", "IsFree", "Price", "ThumbnailURL").
		Omit(clause.Associations).
		Updates(course).Error
}

func (r *CourseRepository) UpdateThumbnail(id uint, url string) error {
	return r.DB.Model(&model.Course{}).Where("id = ?", id).Update("thumbnail_url", url).Error
}

func (r *CourseRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Course{}, id).Error
}

func (r *CourseRepository) List(filter CourseFilter, offset, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64

	query := r.DB.Model(&model.Course{})
	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.TeacherID != 0 {
		query = query.Where("teacher_id = ?", filter.TeacherID)
	}
	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		query = query.Where("title LIKE ? OR description LIKE ?", term, term)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := query.Preload("Teacher").Preload("Category").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&courses).Error
	return courses, total, err
}

// ListByIDs 按创建时间倒序
func (r *CourseRepository) ListByIDs(ids []uint) ([]model.Course, error) {
	var courses []model.Course
	if len(ids) == 0 {
		return courses, nil
	}
	err := r.DB.Preload("Category").
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&courses).Error
	return courses, err
}

// IDsByTeacher 教师拥有的课程 ID
func (r *CourseRepository) IDsByTeacher(teacherID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.Model(&model.Course{}).Where("teacher_id = ?", teacherID).Pluck("id", &ids).Error
	return ids, err
}

func (r *CourseRepository) CountByCategory(categoryID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Course{}).Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

type countRow struct {
	CourseID uint
	Total    int64
}

type ratingRow struct {
	CourseID uint
	Average  float64
	Total    int64
}

// StatsFor 批量统计课时数、报名数与评分
func (r *CourseRepository) StatsFor(courseIDs []uint) (map[uint]*CourseStats, error) {
	stats := make(map[uint]*CourseStats, len(courseIDs))
	for _, id := range courseIDs {
		stats[id] = &CourseStats{CourseID: id}
	}
	if len(courseIDs) == 0 {
		return stats, nil
	}

	var lessons []countRow
	if err := r.DB.Model(&model.Lesson{}).
		Select("course_id, COUNT(*) AS total").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&lessons).Error; err != nil {
		return nil, err
	}
	for _, row := range lessons {
		stats[row.CourseID].LessonCount = row.Total
	}

	var enrollments []countRow
	if err := r.DB.Model(&model.Enrollment{}).
		Select("course_id, COUNT(*) AS total").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&enrollments).Error; err != nil {
		return nil, err
	}
	for _, row := range enrollments {
		stats[row.CourseID].EnrollmentCount = row.Total
	}

	var ratings []ratingRow
	if err := r.DB.Model(&model.CourseReview{}).
		Select("course_id, AVG(rating) AS average, COUNT(*) AS total").
		Where("course_id IN ?", courseIDs).
		Group("course_id").
		Scan(&ratings).Error; err != nil {
		return nil, err
	}
	for _, row := range ratings {
		stats[row.CourseID].AverageRating = row.Average
		stats[row.CourseID].ReviewCount = row.Total
	}

	return stats, nil
}
