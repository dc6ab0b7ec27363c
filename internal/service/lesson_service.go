package service

import (
	"errors"
	"strings"
	"time"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/util"

	"gorm.io/gorm"
)

type LessonService struct {
	DB         *gorm.DB
	CourseRepo *repository.CourseRepository
	LessonRepo *repository.LessonRepository
}

func NewLessonService(db *gorm.DB, courseRepo *repository.CourseRepository, lessonRepo *repository.LessonRepository) *LessonService {
	return &LessonService{DB: db, CourseRepo: courseRepo, LessonRepo: lessonRepo}
}

// LessonView 对外的课时结构。VideoURL 为 nil 时 JSON 中不出现 videoUrl 键
type LessonView struct {
	ID          uint      `json:"id"`
	CourseID    uint      `json:"courseId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Duration    *int      `json:"duration"`
	LessonOrder int       `json:"lessonOrder"`
	VideoURL    *string   `json:"videoUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewLessonView 只有 granted 为真时才带上视频地址
func NewLessonView(l *model.Lesson, granted bool) LessonView {
	v := LessonView{
		ID:          l.ID,
		CourseID:    l.CourseID,
		Title:       l.Title,
		Description: l.Description,
		Duration:    l.Duration,
		LessonOrder: l.LessonOrder,
		CreatedAt:   l.CreatedAt,
	}
	if granted {
		url := l.VideoURL
		v.VideoURL = &url
	}
	return v
}

type LessonListing struct {
	CourseID  uint         `json:"courseId"`
	HasAccess bool         `json:"hasAccess"`
	Lessons   []LessonView `json:"lessons"`
}

// List 任何人都能看到课时列表，视频地址只返回给有权限的调用者
func (s *LessonService) List(p *access.Policy, courseID uint) (*LessonListing, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	lessons, err := s.LessonRepo.ListByCourse(courseID)
	if err != nil {
		return nil, err
	}

	granted := p.CanViewContent(course)
	views := make([]LessonView, 0, len(lessons))
	for i := range lessons {
		views = append(views, NewLessonView(&lessons[i], granted))
	}
	return &LessonListing{CourseID: courseID, HasAccess: granted, Lessons: views}, nil
}

func (s *LessonService) Get(p *access.Policy, lessonID uint) (*LessonView, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	view := NewLessonView(lesson, p.CanViewContent(lesson.Course))
	return &view, nil
}

type LessonInput struct {
	Title       string
	Description string
	VideoURL    string
	Duration    *int
}

func validateLessonInput(in *LessonInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.VideoURL = strings.TrimSpace(in.VideoURL)
	if in.Title == "" {
		return util.NewValidationError("title is required")
	}
	if in.VideoURL == "" {
		return util.NewValidationError("videoUrl is required")
	}
	if in.Duration != nil && *in.Duration < 0 {
		return util.NewValidationError("duration cannot be negative")
	}
	return nil
}

func (s *LessonService) managedCourse(p *access.Policy, courseID uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.CanManageCourse(course) {
		return nil, util.NewForbiddenError("You do not own this course")
	}
	return course, nil
}

func (s *LessonService) managedLesson(p *access.Policy, lessonID uint) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.CanManageCourse(lesson.Course) {
		return nil, util.NewForbiddenError("You do not own this course")
	}
	return lesson, nil
}

// Create 新课时追加在末尾，序号为当前最大值加一
func (s *LessonService) Create(p *access.Policy, courseID uint, in LessonInput) (*LessonView, error) {
	if _, err := s.managedCourse(p, courseID); err != nil {
		return nil, err
	}
	if err := validateLessonInput(&in); err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		CourseID:    courseID,
		Title:       in.Title,
		Description: in.Description,
		VideoURL:    in.VideoURL,
		Duration:    in.Duration,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.LessonRepo.WithTx(tx)
		order, err := repo.NextOrder(courseID)
		if err != nil {
			return err
		}
		lesson.LessonOrder = order
		return repo.Create(lesson)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.NewConflictError("Another lesson was added at the same time, please retry")
		}
		return nil, err
	}

	view := NewLessonView(lesson, true)
	return &view, nil
}

func (s *LessonService) Update(p *access.Policy, lessonID uint, in LessonInput) (*LessonView, error) {
	lesson, err := s.managedLesson(p, lessonID)
	if err != nil {
		return nil, err
	}
	if err := validateLessonInput(&in); err != nil {
		return nil, err
	}

	lesson.Title = in.Title
	lesson.Description = in.Description
	lesson.VideoURL = in.VideoURL
	lesson.Duration = in.Duration
	if err := s.LessonRepo.Update(lesson); err != nil {
		return nil, err
	}
	view := NewLessonView(lesson, true)
	return &view, nil
}

func (s *LessonService) Delete(p *access.Policy, lessonID uint) error {
	if _, err := s.managedLesson(p, lessonID); err != nil {
		return err
	}
	return s.LessonRepo.Delete(lessonID)
}

// Reorder orderedIDs 必须恰好包含课程的全部课时
func (s *LessonService) Reorder(p *access.Policy, courseID uint, orderedIDs []uint) (*LessonListing, error) {
	if _, err := s.managedCourse(p, courseID); err != nil {
		return nil, err
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.LessonRepo.WithTx(tx)
		current, err := repo.IDsByCourse(courseID)
		if err != nil {
			return err
		}
		if !samePermutation(current, orderedIDs) {
			return util.NewValidationError("lessonIds must list every lesson of the course exactly once")
		}
		return repo.Reorder(courseID, orderedIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.List(p, courseID)
}

func samePermutation(current, proposed []uint) bool {
	if len(current) != len(proposed) {
		return false
	}
	remaining := make(map[uint]int, len(current))
	for _, id := range current {
		remaining[id]++
	}
	for _, id := range proposed {
		if remaining[id] == 0 {
			return false
		}
		remaining[id]--
	}
	return true
}
