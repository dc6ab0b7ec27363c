package controller

import (
	"manhaj_backend/internal/access"
	"manhaj_backend/internal/repository"
	"manhaj_backend/internal/service"
	"manhaj_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// CategoryRequest 分类请求
// swagger:model CategoryRequest
type CategoryRequest struct {
	NameEn string `json:"nameEn" binding:"required,max=100"`
	NameAr string `json:"nameAr" binding:"required,max=100"`
	Slug   string `json:"slug" binding:"max=120"`
}

// CourseRequest 课程创建/更新请求
// swagger:model CourseRequest
type CourseRequest struct {
	Title        string   `json:"title" binding:"required,max=255"`
	Description  string   `json:"description"`
	CategoryID   uint     `json:"categoryId" binding:"required"`
	IsFree       bool     `json:"isFree"`
	Price        *float64 `json:"price"`
	ThumbnailURL string   `json:"thumbnailUrl" binding:"omitempty,url,max=500"`
}

func (r CourseRequest) input() service.CourseInput {
	return service.CourseInput{
		Title:        r.Title,
		Description:  r.Description,
		CategoryID:   r.CategoryID,
		IsFree:       r.IsFree,
		Price:        r.Price,
		ThumbnailURL: r.ThumbnailURL,
	}
}

// ListCategories godoc
// @Summary 分类列表
// @Tags 分类
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Category}
// @Router /api/categories [get]
func (c *CourseController) ListCategories(ctx *gin.Context) {
	categories, err := c.CourseService.ListCategories()
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, categories)
}

// CreateCategory godoc
// @Summary 创建分类
// @Tags 分类
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CategoryRequest true "分类"
// @Success 201 {object} util.Response{data=model.Category}
// @Failure 409 {object} util.Response "slug 已存在"
// @Router /api/admin/categories [post]
func (c *CourseController) CreateCategory(ctx *gin.Context) {
	var req CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	category, err := c.CourseService.CreateCategory(service.CategoryInput{NameEn: req.NameEn, NameAr: req.NameAr, Slug: req.Slug})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, category)
}

// UpdateCategory godoc
// @Summary 更新分类
// @Tags 分类
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "分类ID"
// @Param   body body CategoryRequest true "分类"
// @Success 200 {object} util.Response{data=model.Category}
// @Router /api/admin/categories/{id} [put]
func (c *CourseController) UpdateCategory(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req CategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	category, err := c.CourseService.UpdateCategory(id, service.CategoryInput{NameEn: req.NameEn, NameAr: req.NameAr, Slug: req.Slug})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, category)
}

// DeleteCategory godoc
// @Summary 删除分类
// @Tags 分类
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "分类ID"
// @Success 200 {object} util.Response
// @Failure 409 {object} util.Response "分类下仍有课程"
// @Router /api/admin/categories/{id} [delete]
func (c *CourseController) DeleteCategory(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if err := c.CourseService.DeleteCategory(id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListCourses godoc
// @Summary 课程列表
// @Tags 课程
// @Produce  json
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Param   categoryId query int false "分类"
// @Param   teacherId query int false "教师"
// @Param   search query string false "搜索关键词"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	filter := repository.CourseFilter{
		CategoryID: util.MustParseUint(ctx.Query("categoryId")),
		TeacherID:  util.MustParseUint(ctx.Query("teacherId")),
		Search:     ctx.Query("search"),
	}

	courses, total, err := c.CourseService.List(filter, page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Page(ctx, courses, total, page, limit)
}

// GetCourse godoc
// @Summary 课程详情
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseDetail}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	detail, err := c.CourseService.Get(access.FromContext(ctx), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// GetCourseBySlug godoc
// @Summary 按 slug 获取课程详情
// @Tags 课程
// @Produce  json
// @Param   slug path string true "课程 slug"
// @Success 200 {object} util.Response{data=service.CourseDetail}
// @Failure 404 {object} util.Response
// @Router /api/courses/slug/{slug} [get]
func (c *CourseController) GetCourseBySlug(ctx *gin.Context) {
	detail, err := c.CourseService.GetBySlug(access.FromContext(ctx), ctx.Param("slug"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// MyCourses godoc
// @Summary 教师自己的课程
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.CourseView}
// @Router /api/teacher/courses [get]
func (c *CourseController) MyCourses(ctx *gin.Context) {
	courses, err := c.CourseService.MyCourses(access.FromContext(ctx))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body CourseRequest true "课程"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /api/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.Create(access.FromContext(ctx), req.input())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// UpdateCourse godoc
// @Summary 更新课程
// @Tags 课程
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body CourseRequest true "课程"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 403 {object} util.Response
// @Router /api/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.Update(access.FromContext(ctx), id, req.input())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程
// @Tags 课程
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if err := c.CourseService.Delete(access.FromContext(ctx), id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// UploadThumbnail godoc
// @Summary 上传课程封面
// @Description 只接受图片，按文件内容判断类型，最大 5MB
// @Tags 课程
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   file formData file true "封面图片"
// @Success 200 {object} util.Response
// @Router /api/courses/{id}/thumbnail [post]
func (c *CourseController) UploadThumbnail(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	defer file.Close()

	url, err := c.CourseService.UploadThumbnail(ctx.Request.Context(), access.FromContext(ctx), id, file)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"thumbnailUrl": url})
}
