package repository

import (
	"manhaj_backend/internal/model"

	"gorm.io/gorm"
)

// ReportRepository 管理后台统计查询
type ReportRepository struct {
	DB *gorm.DB
}

func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{DB: db}
}

type roleCount struct {
	Role  string
	Total int64
}

type statusCount struct {
	Status string
	Total  int64
}

func (r *ReportRepository) UsersByRole() (map[string]int64, error) {
	var rows []roleCount
	err := r.DB.Model(&model.User{}).Select("role, COUNT(*) AS total").Group("role").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := map[string]int64{
		string(model.Student):    0,
		string(model.Teacher):    0,
		string(model.SuperAdmin): 0,
	}
	for _, row := range rows {
		result[row.Role] = row.Total
	}
	return result, nil
}

func (r *ReportRepository) EnrollmentsByStatus() (map[string]int64, error) {
	var rows []statusCount
	err := r.DB.Model(&model.Enrollment{}).Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := map[string]int64{
		string(model.EnrollmentPending):   0,
		string(model.EnrollmentConfirmed): 0,
		string(model.EnrollmentFree):      0,
	}
	for _, row := range rows {
		result[row.Status] = row.Total
	}
	return result, nil
}

func (r *ReportRepository) Count(value interface{}) (int64, error) {
	var count int64
	err := r.DB.Model(value).Count(&count).Error
	return count, err
}

func (r *ReportRepository) CountUngradedSubmissions() (int64, error) {
	var count int64
	err := r.DB.Model(&model.QuizSubmission{}).Where("graded_at IS NULL").Count(&count).Error
	return count, err
}

// TeacherReportRow 教师维度汇总
type TeacherReportRow struct {
	TeacherID      uint   `json:"teacherId"`
	FullName       string `json:"fullName"`
	Email          string `json:"email"`
	CourseCount    int64  `json:"courseCount"`
	StudentCount   int64  `json:"studentCount"`
	ConfirmedCount int64  `json:"confirmedCount"`
}

func (r *ReportRepository) TeacherReport() ([]TeacherReportRow, error) {
	var rows []TeacherReportRow
	err := r.DB.Table("users").
		Select(`users.id AS teacher_id, users.full_name, users.email,
			COUNT(DISTINCT courses.id) AS course_count,
			COUNT(DISTINCT enrollments.student_id) AS student_count,
			COUNT(DISTINCT CASE WHEN enrollments.status = ? THEN enrollments.id END) AS confirmed_count`,
			model.EnrollmentConfirmed).
		Joins("LEFT JOIN courses ON courses.teacher_id = users.id").
		Joins("LEFT JOIN enrollments ON enrollments.course_id = courses.id").
		Where("users.role = ?", model.Teacher).
		Group("users.id, users.full_name, users.email").
		Order("users.full_name ASC").
		Scan(&rows).Error
	return rows, err
}

// CourseReportRow 课程维度汇总
type CourseReportRow struct {
	CourseID       uint    `json:"courseId"`
	Title          string  `json:"title"`
	TeacherName    string  `json:"teacherName"`
	PendingCount   int64   `json:"pendingCount"`
	ConfirmedCount int64   `json:"confirmedCount"`
	FreeCount      int64   `json:"freeCount"`
	LessonCount    int64   `json:"lessonCount"`
	QuizCount      int64   `json:"quizCount"`
	AverageRating  float64 `json:"averageRating"`
}

func (r *ReportRepository) CourseReport() ([]CourseReportRow, error) {
	var rows []CourseReportRow
	err := r.DB.Table("courses").
		Select(`courses.id AS course_id, courses.title, users.full_name AS teacher_name,
			(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = courses.id AND e.status = ?) AS pending_count,
			(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = courses.id AND e.status = ?) AS confirmed_count,
			(SELECT COUNT(*) FROM enrollments e WHERE e.course_id = courses.id AND e.status = ?) AS free_count,
			(SELECT COUNT(*) FROM lessons l WHERE l.course_id = courses.id) AS lesson_count,
			(SELECT COUNT(*) FROM quizzes q JOIN lessons l ON l.id = q.lesson_id WHERE l.course_id = courses.id) AS quiz_count,
			(SELECT COALESCE(AVG(cr.rating), 0) FROM course_reviews cr WHERE cr.course_id = courses.id) AS average_rating`,
			model.EnrollmentPending, model.EnrollmentConfirmed, model.EnrollmentFree).
		Joins("JOIN users ON users.id = courses.teacher_id").
		Order("courses.created_at DESC").
		Scan(&rows).Error
	return rows, err
}
