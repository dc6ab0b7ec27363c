package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CourseService struct {
	DB           *gorm.DB
	CourseRepo   *repository.CourseRepository
	CategoryRepo *repository.CategoryRepository
	Storage      *StorageService
}

func NewCourseService(db *gorm.DB, courseRepo *repository.CourseRepository, categoryRepo *repository.CategoryRepository, storage *StorageService) *CourseService {
	return &CourseService{
		DB:           db,
		CourseRepo:   courseRepo,
		CategoryRepo: categoryRepo,
		Storage:      storage,
	}
}

// ---- 分类 ----

type CategoryInput struct {
	NameEn string
	NameAr string
	Slug   string
}

func categorySlug(in CategoryInput) string {
	if s := util.Slugify(in.Slug); s != "" {
		return s
	}
	if s := util.Slugify(in.NameEn); s != "" {
		return s
	}
	return util.Slugify(in.NameAr)
}

func (s *CourseService) ListCategories() ([]model.Category, error) {
	return s.CategoryRepo.List()
}

func (s *CourseService) CreateCategory(in CategoryInput) (*model.Category, error) {
	slug := categorySlug(in)
	if slug == "" {
		return nil, util.NewValidationError("category slug could not be derived")
	}
	category := &model.Category{
		NameEn: strings.TrimSpace(in.NameEn),
		NameAr: strings.TrimSpace(in.NameAr),
		Slug:   slug,
	}
	if err := s.CategoryRepo.Create(category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.NewConflictError("Category slug already exists")
		}
		return nil, err
	}
	return category, nil
}

func (s *CourseService) UpdateCategory(id uint, in CategoryInput) (*model.Category, error) {
	category, err := s.CategoryRepo.FindByID(id)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if in.NameEn != "" {
		category.NameEn = strings.TrimSpace(in.NameEn)
	}
	if in.NameAr != "" {
		category.NameAr = strings.TrimSpace(in.NameAr)
	}
	if slug := util.Slugify(in.Slug); slug != "" {
		category.Slug = slug
	}
	if err := s.CategoryRepo.Update(category); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, util.NewConflictError("Category slug already exists")
		}
		return nil, err
	}
	return category, nil
}

// DeleteCategory 仍有课程的分类不能删除
func (s *CourseService) DeleteCategory(id uint) error {
	if _, err := s.CategoryRepo.FindByID(id); err != nil {
		return util.Normalize(err)
	}
	count, err := s.CourseRepo.CountByCategory(id)
	if err != nil {
		return err
	}
	if count > 0 {
		return util.NewConflictError("Category still has courses")
	}
	return s.CategoryRepo.Delete(id)
}

// ---- 课程 ----

type CourseInput struct {
	Title        string
	Description  string
	CategoryID   uint
	IsFree       bool
	Price        *float64
	ThumbnailURL string
}

// CourseView 课程及其统计
type CourseView struct {
	model.Course
	repository.CourseStats
}

func validateCourseInput(in *CourseInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return util.NewValidationError("title is required")
	}
	if in.Price != nil && *in.Price < 0 {
		return util.NewValidationError("price cannot be negative")
	}
	if in.IsFree {
		in.Price = nil
	}
	return nil
}

func (s *CourseService) checkCategory(id uint) error {
	if id == 0 {
		return util.NewValidationError("categoryId is required")
	}
	if _, err := s.CategoryRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.NewValidationError("category does not exist")
		}
		return err
	}
	return nil
}

// Create 教师创建课程。slug 由标题生成：为空时为 course-{id}，已被占用时追加 -{id}
func (s *CourseService) Create(p *access.Policy, in CourseInput) (*model.Course, error) {
	if !p.IsTeacher() {
		return nil, util.NewForbiddenError("Only teachers can create courses")
	}
	if err := validateCourseInput(&in); err != nil {
		return nil, err
	}
	if err := s.checkCategory(in.CategoryID); err != nil {
		return nil, err
	}

	course := &model.Course{
		Title:        in.Title,
		Slug:         "pending-" + uuid.NewString(),
		Description:  in.Description,
		ThumbnailURL: in.ThumbnailURL,
		TeacherID:    p.UserID,
		CategoryID:   in.CategoryID,
		IsFree:       in.IsFree,
		Price:        in.Price,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.CourseRepo.WithTx(tx)
		if err := repo.Create(course); err != nil {
			return err
		}

		slug := util.Slugify(course.Title)
		switch {
		case slug == "":
			slug = util.FallbackCourseSlug(course.ID)
		default:
			taken, err := repo.SlugExists(slug)
			if err != nil {
				return err
			}
			if taken {
				slug = fmt.Sprintf("%s-%d", slug, course.ID)
			}
		}
		if err := repo.UpdateSlug(course.ID, slug); err != nil {
			return err
		}
		course.Slug = slug
		return nil
	})
	if err != nil {
		return nil, util.Normalize(err)
	}
	return course, nil
}

func (s *CourseService) withStats(courses []model.Course) ([]CourseView, error) {
	ids := make([]uint, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.ID)
	}
	stats, err := s.CourseRepo.StatsFor(ids)
	if err != nil {
		return nil, err
	}

	views := make([]CourseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, CourseView{Course: c, CourseStats: *stats[c.ID]})
	}
	return views, nil
}

func (s *CourseService) List(filter repository.CourseFilter, page, limit int) ([]CourseView, int64, error) {
	courses, total, err := s.CourseRepo.List(filter, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	views, err := s.withStats(courses)
	return views, total, err
}

// MyCourses 教师自己的课程，课程范围取自请求策略
func (s *CourseService) MyCourses(p *access.Policy) ([]CourseView, error) {
	if !p.IsTeacher() {
		return nil, util.NewForbiddenError("Only teachers own courses")
	}
	courses, err := s.CourseRepo.ListByIDs(p.OwnedCourseIDs())
	if err != nil {
		return nil, err
	}
	return s.withStats(courses)
}

// CourseDetail 课程详情，附带调用者的访问状态
type CourseDetail struct {
	CourseView
	HasAccess bool `json:"hasAccess"`
	CanManage bool `json:"canManage"`
}

func (s *CourseService) detail(p *access.Policy, course *model.Course) (*CourseDetail, error) {
	views, err := s.withStats([]model.Course{*course})
	if err != nil {
		return nil, err
	}
	return &CourseDetail{
		CourseView: views[0],
		HasAccess:  p.CanViewContent(course),
		CanManage:  p.CanManageCourse(course),
	}, nil
}

func (s *CourseService) Get(p *access.Policy, id uint) (*CourseDetail, error) {
	course, err := s.CourseRepo.FindByID(id)
	if err != nil {
		return nil, util.Normalize(err)
	}
	return s.detail(p, course)
}

func (s *CourseService) GetBySlug(p *access.Policy, slug string) (*CourseDetail, error) {
	course, err := s.CourseRepo.FindBySlug(slug)
	if err != nil {
		return nil, util.Normalize(err)
	}
	return s.detail(p, course)
}

// findManaged 加载课程并确认调用者可以管理
func (s *CourseService) findManaged(p *access.Policy, id uint) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(id)
	if err != nil {
		return nil, util.Normalize(err)
	}
	if !p.CanManageCourse(course) {
		return nil, util.NewForbiddenError("You do not own this course")
	}
	return course, nil
}

// Update slug 创建后保持不变
func (s *CourseService) Update(p *access.Policy, id uint, in CourseInput) (*model.Course, error) {
	course, err := s.findManaged(p, id)
	if err != nil {
		return nil, err
	}
	if err := validateCourseInput(&in); err != nil {
		return nil, err
	}
	if in.CategoryID != course.CategoryID {
		if err := s.checkCategory(in.CategoryID); err != nil {
			return nil, err
		}
	}

	course.Title = in.Title
	course.Description = in.Description
	course.CategoryID = in.CategoryID
	course.IsFree = in.IsFree
	course.Price = in.Price
	if in.ThumbnailURL != "" {
		course.ThumbnailURL = in.ThumbnailURL
	}
	if err := s.CourseRepo.Update(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Delete(p *access.Policy, id uint) error {
	if _, err := s.findManaged(p, id); err != nil {
		return err
	}
	return s.CourseRepo.Delete(id)
}

// UploadThumbnail 只接受图片，按内容判断类型
func (s *CourseService) UploadThumbnail(ctx context.Context, p *access.Policy, id uint, file io.Reader) (string, error) {
	if _, err := s.findManaged(p, id); err != nil {
		return "", err
	}
	obj, err := s.Storage.UploadImage(ctx, fmt.Sprintf("thumbnails/%d", id), file)
	if err != nil {
		return "", err
	}
	if err := s.CourseRepo.UpdateThumbnail(id, obj.URL); err != nil {
		return "", err
	}
	return obj.URL, nil
}
