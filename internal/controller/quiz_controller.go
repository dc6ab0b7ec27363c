package controller

import (
	"mime/multipart"
	"time"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/service"
	"manhaj_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// QuizRequest 测验创建/更新请求
// swagger:model QuizRequest
type QuizRequest struct {
	Title       string     `json:"title" binding:"required,max=255"`
	Description string     `json:"description"`
	Deadline    *time.Time `json:"deadline"`
}

func (r QuizRequest) input() service.QuizInput {
	return service.QuizInput{Title: r.Title, Description: r.Description, Deadline: r.Deadline}
}

type QuizActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// GradeRequest 评分请求
// swagger:model GradeRequest
type GradeRequest struct {
	Score    *float64 `json:"score" binding:"required"`
	Feedback *string  `json:"feedback"`
}

// ListQuizzes godoc
// @Summary 课时下的测验
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=[]model.Quiz}
// @Router /api/lessons/{id}/quizzes [get]
func (c *QuizController) ListQuizzes(ctx *gin.Context) {
	lessonID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	quizzes, err := c.QuizService.ListByLesson(access.FromContext(ctx), lessonID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quizzes)
}

// CreateQuiz godoc
// @Summary 创建测验
// @Description 课程的每一条报名记录都会收到 new_content 通知
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Param   body body QuizRequest true "测验"
// @Success 201 {object} util.Response{data=model.Quiz}
// @Router /api/lessons/{id}/quizzes [post]
func (c *QuizController) CreateQuiz(ctx *gin.Context) {
	lessonID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req QuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.Create(access.FromContext(ctx), lessonID, req.input())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, quiz)
}

// UpdateQuiz godoc
// @Summary 更新测验
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body QuizRequest true "测验"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /api/quizzes/{id} [put]
func (c *QuizController) UpdateQuiz(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req QuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.Update(access.FromContext(ctx), id, req.input())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// SetQuizActive godoc
// @Summary 开启或关闭测验
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   body body QuizActiveRequest true "状态"
// @Success 200 {object} util.Response{data=model.Quiz}
// @Router /api/quizzes/{id}/active [patch]
func (c *QuizController) SetQuizActive(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req QuizActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.SetActive(access.FromContext(ctx), id, *req.IsActive)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, quiz)
}

// DeleteQuiz godoc
// @Summary 删除测验
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response
// @Router /api/quizzes/{id} [delete]
func (c *QuizController) DeleteQuiz(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if err := c.QuizService.Delete(access.FromContext(ctx), id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// SubmitQuiz godoc
// @Summary 提交测验
// @Description 上传 0 到 5 张图片，每张不超过 5MB；每个测验只能提交一次
// @Tags 测验
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Param   images formData file false "作答图片"
// @Success 201 {object} util.Response{data=model.QuizSubmission}
// @Failure 409 {object} util.Response "已提交"
// @Router /api/quizzes/{id}/submit [post]
func (c *QuizController) SubmitQuiz(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	var headers []*multipart.FileHeader
	if form, err := ctx.MultipartForm(); err == nil && form != nil {
		headers = append(headers, form.File["images[]"]...)
		headers = append(headers, form.File["images"]...)
	}
	if len(headers) > util.MaxSubmissionImages {
		util.BadRequest(ctx, "too many images")
		return
	}

	uploads := make([]service.Upload, 0, len(headers))
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			util.RespondError(ctx, err)
			return
		}
		defer f.Close()
		uploads = append(uploads, service.Upload{Name: h.Filename, Reader: f})
	}

	submission, err := c.QuizService.Submit(ctx.Request.Context(), access.FromContext(ctx), id, uploads)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, submission)
}

// MySubmission godoc
// @Summary 我的提交
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.QuizSubmission}
// @Failure 404 {object} util.Response "尚未提交"
// @Router /api/quizzes/{id}/my-submission [get]
func (c *QuizController) MySubmission(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	submission, err := c.QuizService.MySubmission(access.FromContext(ctx), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}

// ListSubmissions godoc
// @Summary 测验的全部提交
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]model.QuizSubmission}
// @Router /api/quizzes/{id}/submissions [get]
func (c *QuizController) ListSubmissions(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	submissions, err := c.QuizService.Submissions(access.FromContext(ctx), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, submissions)
}

// UngradedSubmissions godoc
// @Summary 待评分的提交
// @Tags 测验
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.QuizSubmission}
// @Router /api/teacher/submissions/ungraded [get]
func (c *QuizController) UngradedSubmissions(ctx *gin.Context) {
	submissions, err := c.QuizService.Ungraded(access.FromContext(ctx))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, submissions)
}

// GradeSubmission godoc
// @Summary 评分
// @Description 分数 0..100，可以重新评分
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "提交ID"
// @Param   body body GradeRequest true "评分"
// @Success 200 {object} util.Response{data=model.QuizSubmission}
// @Router /api/submissions/{id}/grade [put]
func (c *QuizController) GradeSubmission(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req GradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	submission, err := c.QuizService.Grade(access.FromContext(ctx), id, service.GradeInput{
		Score:    *req.Score,
		Feedback: req.Feedback,
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, submission)
}
