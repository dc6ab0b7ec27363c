package service

import (
	"errors"
	"time"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/util"

	"gorm.io/gorm"
)

type ProgressService struct {
	DB           *gorm.DB
	CourseRepo   *repository.CourseRepository
	LessonRepo   *repository.LessonRepository
	ProgressRepo *repository.ProgressRepository
}

func NewProgressService(db *gorm.DB, courseRepo *repository.CourseRepository, lessonRepo *repository.LessonRepository, progressRepo *repository.ProgressRepository) *ProgressService {
	return &ProgressService{DB: db, CourseRepo: courseRepo, LessonRepo: lessonRepo, ProgressRepo: progressRepo}
}

type ProgressInput struct {
	Completed    *bool
	LastPosition int
}

// Update 记录观看位置。completed 一旦为真不会再被改回，completedAt 只写一次
func (s *ProgressService) Update(p *access.Policy, lessonID uint, in ProgressInput) (*model.LessonProgress, error) {
	if !p.IsStudent() {
		return nil, util.NewForbiddenError("Only students track progress")
	}
	if in.LastPosition < 0 {
		return nil, util.NewValidationError("lastPosition cannot be negative")
	}
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.CanViewContent(lesson.Course) {
		return nil, util.NewForbiddenError("You do not have access to this lesson")
	}

	var progress *model.LessonProgress
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.ProgressRepo.WithTx(tx)
		current, err := repo.FindByStudentAndLesson(p.UserID, lessonID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			current = &model.LessonProgress{
				StudentID: p.UserID,
				LessonID:  lessonID,
				CourseID:  lesson.CourseID,
			}
		}

		current.LastPosition = in.LastPosition
		if in.Completed != nil && *in.Completed && !current.Completed {
			now := time.Now()
			current.Completed = true
			current.CompletedAt = &now
		}
		progress = current
		return repo.Save(current)
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

type LessonProgressItem struct {
	LessonID     uint       `json:"lessonId"`
	Title        string     `json:"title"`
	LessonOrder  int        `json:"lessonOrder"`
	Completed    bool       `json:"completed"`
	LastPosition int        `json:"lastPosition"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

type CourseProgress struct {
	CourseID         uint                 `json:"courseId"`
	TotalLessons     int64                `json:"totalLessons"`
	CompletedLessons int64                `json:"completedLessons"`
	Percentage       int                  `json:"percentage"`
	Lessons          []LessonProgressItem `json:"lessons"`
}

// CourseProgress 学生在课程内的进度
func (s *ProgressService) CourseProgress(p *access.Policy, courseID uint) (*CourseProgress, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.IsStudent() || !p.CanViewContent(course) {
		return nil, util.NewForbiddenError("You do not have access to this course")
	}

	lessons, err := s.LessonRepo.ListByCourse(courseID)
	if err != nil {
		return nil, err
	}
	records, err := s.ProgressRepo.ListByStudentAndCourse(p.UserID, courseID)
	if err != nil {
		return nil, err
	}
	byLesson := make(map[uint]model.LessonProgress, len(records))
	for _, r := range records {
		byLesson[r.LessonID] = r
	}

	result := &CourseProgress{
		CourseID:     courseID,
		TotalLessons: int64(len(lessons)),
		Lessons:      make([]LessonProgressItem, 0, len(lessons)),
	}
	for _, l := range lessons {
		item := LessonProgressItem{LessonID: l.ID, Title: l.Title, LessonOrder: l.LessonOrder}
		if r, ok := byLesson[l.ID]; ok {
			item.Completed = r.Completed
			item.LastPosition = r.LastPosition
			item.CompletedAt = r.CompletedAt
			if r.Completed {
				result.CompletedLessons++
			}
		}
		result.Lessons = append(result.Lessons, item)
	}
	result.Percentage = Percentage(result.CompletedLessons, result.TotalLessons)
	return result, nil
}
