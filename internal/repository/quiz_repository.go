package repository

import (
	"manhaj_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuizRepository struct {
	DB *gorm.DB
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: db}
}

func (r *QuizRepository) WithTx(tx *gorm.DB) *QuizRepository {
	return &QuizRepository{DB: tx}
}

func (r *QuizRepository) Create(quiz *model.Quiz) error {
	return r.DB.Create(quiz).Error
}

// FindByID 加载课时和课程，用于权限判断
func (r *QuizRepository) FindByID(id uint) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.Preload("Lesson").Preload("Lesson.Course").First(&quiz, id).Error
	return &quiz, err
}

func (r *QuizRepository) ListByLesson(lessonID uint) ([]model.Quiz, error) {
	var quizzes []model.Quiz
	err := r.DB.Where("lesson_id = ?", lessonID).Order("created_at ASC").Find(&quizzes).Error
	return quizzes, err
}

func (r *QuizRepository) Update(quiz *model.Quiz) error {
	return r.DB.Model(quiz).
		Select("Title", "Description", "Deadline").
		Omit(clause.Associations).
		Updates(quiz).Error
}

func (r *QuizRepository) SetActive(id uint, active bool) error {
	return r.DB.Model(&model.Quiz{}).Where("id = ?", id).Update("is_active", active).Error
}

func (r *QuizRepository) Delete(id uint) error {
	return r.DB.Delete(&model.Quiz{}, id).Error
}

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) WithTx(tx *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: tx}
}

// Create 连同图片一起写入；(quiz_id, student_id) 唯一索引拒绝重复提交
func (r *SubmissionRepository) Create(submission *model.QuizSubmission) error {
	return r.DB.Create(submission).Error
}

func (r *SubmissionRepository) FindByID(id uint) (*model.QuizSubmission, error) {
	var submission model.QuizSubmission
	err := r.DB.Preload("Images").
		Preload("Quiz").Preload("Quiz.Lesson").Preload("Quiz.Lesson.Course").
		First(&submission, id).Error
	return &submission, err
}

func (r *SubmissionRepository) FindByQuizAndStudent(quizID, studentID uint) (*model.QuizSubmission, error) {
	var submission model.QuizSubmission
	err := r.DB.Preload("Images").
		Where("quiz_id = ? AND student_id = ?", quizID, studentID).
		First(&submission).Error
	return &submission, err
}

func (r *SubmissionRepository) ListByQuiz(quizID uint) ([]model.QuizSubmission, error) {
	var submissions []model.QuizSubmission
	err := r.DB.Preload("Images").Preload("Student").
		Where("quiz_id = ?", quizID).
		Order("created_at ASC").
		Find(&submissions).Error
	return submissions, err
}

// ListUngradedByCourses 给定课程中尚未评分的提交
func (r *SubmissionRepository) ListUngradedByCourses(courseIDs []uint) ([]model.QuizSubmission, error) {
	var submissions []model.QuizSubmission
	if len(courseIDs) == 0 {
		return submissions, nil
	}
	err := r.DB.Preload("Images").Preload("Student").Preload("Quiz").
		Joins("JOIN quizzes ON quizzes.id = quiz_submissions.quiz_id").
		Joins("JOIN lessons ON lessons.id = quizzes.lesson_id").
		Where("lessons.course_id IN ? AND quiz_submissions.graded_at IS NULL", courseIDs).
		Order("quiz_submissions.created_at ASC").
		Find(&submissions).Error
	return submissions, err
}

// Grade 允许重新评分，每次都刷新 graded_at
func (r *SubmissionRepository) Grade(id uint, score float64, feedback *string, graderID uint, at time.Time) error {
	return r.DB.Model(&model.QuizSubmission{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":     score,
			"feedback":  feedback,
			"graded_at": at,
			"graded_by": graderID,
		}).Error
}

// ExpiredImages 创建时间早于 cutoff 且仍有存储对象的图片，按 ID 游标分批
func (r *SubmissionRepository) ExpiredImages(cutoff time.Time, afterID uint, limit int) ([]model.QuizSubmissionImage, error) {
	var images []model.QuizSubmissionImage
	err := r.DB.Where("created_at < ? AND storage_key IS NOT NULL AND id > ?", cutoff, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&images).Error
	return images, err
}

// ClearImage 删除存储对象后置空引用，记录本身保留
func (r *SubmissionRepository) ClearImage(id uint) error {
	return r.DB.Model(&model.QuizSubmissionImage{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"storage_key": nil, "url": nil}).Error
}
