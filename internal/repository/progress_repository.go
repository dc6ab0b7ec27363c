package repository

import (
	"time"

	"manhaj_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) WithTx(tx *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: tx}
}

func (r *ProgressRepository) FindByStudentAndLesson(studentID, lessonID uint) (*model.LessonProgress, error) {
	var progress model.LessonProgress
	err := r.DB.Where("student_id = ? AND lesson_id = ?", studentID, lessonID).First(&progress).Error
	return &progress, err
}

// excluded 引用 upsert 中待插入行的列
func (r *ProgressRepository) excluded(column string) string {
	if r.DB.Dialector.Name() == "mysql" {
		return "VALUES(" + column + ")"
	}
	return "excluded." + column
}

// Save 写入进度并回读数据库中的最终状态。completed 只会从 false 变为 true，
// completed_at 一旦写入不再改变；并发的首次写入按唯一键合并
func (r *ProgressRepository) Save(progress *model.LessonProgress) error {
	var err error
	if progress.ID != 0 {
		updates := map[string]interface{}{
			"last_position": progress.LastPosition,
			"updated_at":    time.Now(),
		}
		if progress.Completed {
			updates["completed"] = true
			updates["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", progress.CompletedAt)
		}
		err = r.DB.Model(&model.LessonProgress{}).Where("id = ?", progress.ID).Updates(updates).Error
	} else {
		err = r.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "student_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"last_position": gorm.Expr(r.excluded("last_position")),
				"updated_at":    gorm.Expr(r.excluded("updated_at")),
				"completed":     gorm.Expr("completed OR COALESCE(" + r.excluded("completed") + ", FALSE)"),
				"completed_at":  gorm.Expr("COALESCE(completed_at, " + r.excluded("completed_at") + ")"),
			}),
		}).Create(progress).Error
	}
	if err != nil {
		return err
	}

	var stored model.LessonProgress
	if err := r.DB.Where("student_id = ? AND lesson_id = ?", progress.StudentID, progress.LessonID).
		First(&stored).Error; err != nil {
		return err
	}
	*progress = stored
	return nil
}

func (r *ProgressRepository) ListByStudentAndCourse(studentID, courseID uint) ([]model.LessonProgress, error) {
	var progress []model.LessonProgress
	err := r.DB.Where("student_id = ? AND course_id = ?", studentID, courseID).Find(&progress).Error
	return progress, err
}

type completedRow struct {
	StudentID uint
	Total     int64
}

// CompletedByStudent 课程内每个学生已完成的课时数
func (r *ProgressRepository) CompletedByStudent(courseID uint) (map[uint]int64, error) {
	var rows []completedRow
	err := r.DB.Model(&model.LessonProgress{}).
		Select("student_id, COUNT(*) AS total").
		Where("course_id = ? AND completed = ?", courseID, true).
		Group("student_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[uint]int64, len(rows))
	for _, row := range rows {
		result[row.StudentID] = row.Total
	}
	return result, nil
}

type courseCompletedRow struct {
	CourseID uint
	Total    int64
}

// CompletedByCourse 学生在各课程已完成的课时数
func (r *ProgressRepository) CompletedByCourse(studentID uint) (map[uint]int64, error) {
	var rows []courseCompletedRow
	err := r.DB.Model(&model.LessonProgress{}).
		Select("course_id, COUNT(*) AS total").
		Where("student_id = ? AND completed = ?", studentID, true).
		Group("course_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[uint]int64, len(rows))
	for _, row := range rows {
		result[row.CourseID] = row.Total
	}
	return result, nil
}
