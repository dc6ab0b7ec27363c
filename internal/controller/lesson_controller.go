package controller

import (
	"manhaj_backend/internal/access"
	"manhaj_backend/internal/service"
	"manhaj_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService   *service.LessonService
	ProgressService *service.ProgressService
}

func NewLessonController(lessonService *service.LessonService, progressService *service.ProgressService) *LessonController {
	return &LessonController{LessonService: lessonService, ProgressService: progressService}
}

// LessonRequest 课时创建/更新请求
// swagger:model LessonRequest
type LessonRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description"`
	VideoURL    string `json:"videoUrl" binding:"required,max=500"`
	Duration    *int   `json:"duration" binding:"omitempty,min=0"`
}

func (r LessonRequest) input() service.LessonInput {
	return service.LessonInput{
		Title:       r.Title,
		Description: r.Description,
		VideoURL:    r.VideoURL,
		Duration:    r.Duration,
	}
}

type ReorderLessonsRequest struct {
	LessonIDs []uint `json:"lessonIds" binding:"required"`
}

type ProgressRequest struct {
	Completed    *bool `json:"completed"`
	LastPosition int   `json:"lastPosition" binding:"min=0"`
}

// ListLessons godoc
// @Summary 课程的课时列表
// @Description 没有访问权限时不返回 videoUrl 字段
// @Tags 课时
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.LessonListing}
// @Router /api/courses/{id}/lessons [get]
func (c *LessonController) ListLessons(ctx *gin.Context) {
	courseID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	listing, err := c.LessonService.List(access.FromContext(ctx), courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, listing)
}

// GetLesson godoc
// @Summary 课时详情
// @Tags 课时
// @Produce  json
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.LessonView}
// @Router /api/lessons/{id} [get]
func (c *LessonController) GetLesson(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	lesson, err := c.LessonService.Get(access.FromContext(ctx), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// CreateLesson godoc
// @Summary 添加课时
// @Description 新课时追加到课程末尾
// @Tags 课时
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body LessonRequest true "课时"
// @Success 201 {object} util.Response{data=service.LessonView}
// @Router /api/courses/{id}/lessons [post]
func (c *LessonController) CreateLesson(ctx *gin.Context) {
	courseID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.LessonService.Create(access.FromContext(ctx), courseID, req.input())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, lesson)
}

// UpdateLesson godoc
// @Summary 更新课时
// @Tags 课时
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Param   body body LessonRequest true "课时"
// @Success 200 {object} util.Response{data=service.LessonView}
// @Router /api/lessons/{id} [put]
func (c *LessonController) UpdateLesson(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.LessonService.Update(access.FromContext(ctx), id, req.input())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary 删除课时
// @Tags 课时
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id} [delete]
func (c *LessonController) DeleteLesson(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if err := c.LessonService.Delete(access.FromContext(ctx), id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ReorderLessons godoc
// @Summary 调整课时顺序
// @Tags 课时
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body ReorderLessonsRequest true "全部课时 ID 的新顺序"
// @Success 200 {object} util.Response{data=service.LessonListing}
// @Router /api/courses/{id}/lessons/order [put]
func (c *LessonController) ReorderLessons(ctx *gin.Context) {
	courseID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req ReorderLessonsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	listing, err := c.LessonService.Reorder(access.FromContext(ctx), courseID, req.LessonIDs)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, listing)
}

// UpdateProgress godoc
// @Summary 记录学习进度
// @Description completed 一旦为 true 不会被改回
// @Tags 进度
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Param   body body ProgressRequest true "进度"
// @Success 200 {object} util.Response{data=model.LessonProgress}
// @Router /api/lessons/{id}/progress [put]
func (c *LessonController) UpdateProgress(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req ProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	progress, err := c.ProgressService.Update(access.FromContext(ctx), id, service.ProgressInput{
		Completed:    req.Completed,
		LastPosition: req.LastPosition,
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}

// CourseProgress godoc
// @Summary 课程学习进度
// @Tags 进度
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgress}
// @Router /api/courses/{id}/progress [get]
func (c *LessonController) CourseProgress(ctx *gin.Context) {
	courseID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	progress, err := c.ProgressService.CourseProgress(access.FromContext(ctx), courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, progress)
}
