package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/util"
	"manhaj_backend/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type QuizService struct {
	DB             *gorm.DB
	LessonRepo     *repository.LessonRepository
	QuizRepo       *repository.QuizRepository
	SubmissionRepo *repository.SubmissionRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Storage        *StorageService
	Notifier       *NotificationService
}

func NewQuizService(
	db *gorm.DB,
	lessonRepo *repository.LessonRepository,
	quizRepo *repository.QuizRepository,
	submissionRepo *repository.SubmissionRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	storage *StorageService,
	notifier *NotificationService,
) *QuizService {
	return &QuizService{
		DB:             db,
		LessonRepo:     lessonRepo,
		QuizRepo:       quizRepo,
		SubmissionRepo: submissionRepo,
		EnrollmentRepo: enrollmentRepo,
		Storage:        storage,
		Notifier:       notifier,
	}
}

type QuizInput struct {
	Title       string
	Description string
	Deadline    *time.Time
}

func validateQuizInput(in *QuizInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return util.NewValidationError("title is required")
	}
	return nil
}

func (s *QuizService) managedQuiz(p *access.Policy, quizID uint) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.CanManageCourse(quiz.Lesson.Course) {
		return nil, util.NewForbiddenError("You do not own this course")
	}
	return quiz, nil
}

// Create 课程所有者在课时下创建测验，并通知该课程的每一条报名记录
func (s *QuizService) Create(p *access.Policy, lessonID uint, in QuizInput) (*model.Quiz, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.OwnsCourse(lesson.Course) {
		return nil, util.NewForbiddenError("You do not own this course")
	}
	if err := validateQuizInput(&in); err != nil {
		return nil, err
	}

	quiz := &model.Quiz{
		LessonID:    lessonID,
		Title:       in.Title,
		Description: in.Description,
		Deadline:    in.Deadline,
		IsActive:    true,
	}
	err = s.Notifier.InTx(s.DB, func(tx *gorm.DB) error {
		if err := s.QuizRepo.WithTx(tx).Create(quiz); err != nil {
			return err
		}
		students, err := s.EnrollmentRepo.WithTx(tx).StudentIDsByCourse(lesson.CourseID)
		if err != nil {
			return err
		}
		return s.Notifier.Notify(tx, students,
			"New quiz",
			fmt.Sprintf("A new quiz \"%s\" was added to %s", quiz.Title, lesson.Course.Title),
			model.NewContentPayload{CourseID: lesson.CourseID, LessonID: &lesson.ID, QuizID: &quiz.ID})
	})
	if err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) Update(p *access.Policy, quizID uint, in QuizInput) (*model.Quiz, error) {
	quiz, err := s.managedQuiz(p, quizID)
	if err != nil {
		return nil, err
	}
	if err := validateQuizInput(&in); err != nil {
		return nil, err
	}
	quiz.Title = in.Title
	quiz.Description = in.Description
	quiz.Deadline = in.Deadline
	if err := s.QuizRepo.Update(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) SetActive(p *access.Policy, quizID uint, active bool) (*model.Quiz, error) {
	quiz, err := s.managedQuiz(p, quizID)
	if err != nil {
		return nil, err
	}
	if err := s.QuizRepo.SetActive(quizID, active); err != nil {
		return nil, err
	}
	quiz.IsActive = active
	return quiz, nil
}

func (s *QuizService) Delete(p *access.Policy, quizID uint) error {
	if _, err := s.managedQuiz(p, quizID); err != nil {
		return err
	}
	return s.QuizRepo.Delete(quizID)
}

// ListByLesson 需要课程内容的访问权限
func (s *QuizService) ListByLesson(p *access.Policy, lessonID uint) ([]model.Quiz, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.CanViewContent(lesson.Course) {
		return nil, util.NewForbiddenError("You do not have access to this lesson")
	}
	return s.QuizRepo.ListByLesson(lessonID)
}

// Upload 提交中的一张图片
type Upload struct {
	Name   string
	Reader io.Reader
}

// Submit 学生提交作答图片（0 到 5 张）。每个学生每个测验只能提交一次
func (s *QuizService) Submit(ctx context.Context, p *access.Policy, quizID uint, files []Upload) (*model.QuizSubmission, error) {
	if !p.IsStudent() {
		return nil, util.NewForbiddenError("Only students can submit quizzes")
	}
	if len(files) > util.MaxSubmissionImages {
		return nil, util.NewValidationError(fmt.Sprintf("at most %d images can be submitted", util.MaxSubmissionImages))
	}
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	course := quiz.Lesson.Course
	if !p.CanViewContent(course) {
		return nil, util.NewForbiddenError("You do not have access to this course")
	}
	if !quiz.AcceptsSubmissions(time.Now()) {
		return nil, util.NewValidationError("This quiz is closed")
	}
	if _, err := s.SubmissionRepo.FindByQuizAndStudent(quizID, p.UserID); err == nil {
		return nil, util.NewConflictError("You have already submitted this quiz")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	stored := make([]*StoredObject, 0, len(files))
	cleanup := func() {
		for _, obj := range stored {
			if err := s.Storage.Delete(context.Background(), obj.Key); err != nil {
				logger.Log.Warn("remove orphaned submission image failed", zap.String("key", obj.Key), zap.Error(err))
			}
		}
	}

	folder := fmt.Sprintf("submissions/%d/%d", quizID, p.UserID)
	for _, f := range files {
		obj, err := s.Storage.UploadImage(ctx, folder, f.Reader)
		if err != nil {
			cleanup()
			return nil, err
		}
		stored = append(stored, obj)
	}

	submission := &model.QuizSubmission{
		QuizID:    quizID,
		StudentID: p.UserID,
		Images:    make([]model.QuizSubmissionImage, 0, len(stored)),
	}
	for _, obj := range stored {
		key, url := obj.Key, obj.URL
		submission.Images = append(submission.Images, model.QuizSubmissionImage{StorageKey: &key, URL: &url})
	}

	err = s.Notifier.InTx(s.DB, func(tx *gorm.DB) error {
		if err := s.SubmissionRepo.WithTx(tx).Create(submission); err != nil {
			return err
		}
		return s.Notifier.Notify(tx, []uint{course.TeacherID},
			"New quiz submission",
			fmt.Sprintf("A student submitted \"%s\"", quiz.Title),
			model.QuizSubmissionPayload{QuizID: quizID, SubmissionID: submission.ID, CourseID: course.ID})
	})
	if err != nil {
		cleanup()
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.NewConflictError("You have already submitted this quiz")
		}
		return nil, err
	}
	return submission, nil
}

// MySubmission 学生查看自己的提交
func (s *QuizService) MySubmission(p *access.Policy, quizID uint) (*model.QuizSubmission, error) {
	submission, err := s.SubmissionRepo.FindByQuizAndStudent(quizID, p.UserID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	return submission, nil
}

func (s *QuizService) Submissions(p *access.Policy, quizID uint) ([]model.QuizSubmission, error) {
	if _, err := s.managedQuiz(p, quizID); err != nil {
		return nil, err
	}
	return s.SubmissionRepo.ListByQuiz(quizID)
}

// Ungraded 教师所有课程中待评分的提交，课程范围取自请求策略
func (s *QuizService) Ungraded(p *access.Policy) ([]model.QuizSubmission, error) {
	if !p.IsTeacher() {
		return nil, util.NewForbiddenError("Only teachers grade submissions")
	}
	return s.SubmissionRepo.ListUngradedByCourses(p.OwnedCourseIDs())
}

type GradeInput struct {
	Score    float64
	Feedback *string
}

// Grade 分数范围 0..100，允许重新评分
func (s *QuizService) Grade(p *access.Policy, submissionID uint, in GradeInput) (*model.QuizSubmission, error) {
	if in.Score < 0 || in.Score > 100 {
		return nil, util.NewValidationError("score must be between 0 and 100")
	}
	submission, err := s.SubmissionRepo.FindByID(submissionID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.OwnsCourse(submission.Quiz.Lesson.Course) {
		return nil, util.NewForbiddenError("You do not own this course")
	}

	now := time.Now()
	err = s.Notifier.InTx(s.DB, func(tx *gorm.DB) error {
		if err := s.SubmissionRepo.WithTx(tx).Grade(submissionID, in.Score, in.Feedback, p.UserID, now); err != nil {
			return err
		}
		return s.Notifier.Notify(tx, []uint{submission.StudentID},
			"Quiz graded",
			fmt.Sprintf("Your submission for \"%s\" was graded: %.0f/100", submission.Quiz.Title, in.Score),
			model.GradePayload{QuizID: submission.QuizID, SubmissionID: submission.ID, Score: in.Score})
	})
	if err != nil {
		return nil, err
	}

	submission.Score = &in.Score
	submission.Feedback = in.Feedback
	submission.GradedAt = &now
	submission.GradedBy = &p.UserID
	return submission, nil
}
