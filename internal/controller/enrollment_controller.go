package controller

import (
	"manhaj_backend/internal/access"
	"manhaj_backend/internal/model"
	"manhaj_backend/internal/service"
	"manhaj_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EnrollmentController struct {
	EnrollmentService *service.EnrollmentService
}

func NewEnrollmentController(enrollmentService *service.EnrollmentService) *EnrollmentController {
	return &EnrollmentController{EnrollmentService: enrollmentService}
}

// UpdateEnrollmentRequest 超级管理员更新报名状态
// swagger:model UpdateEnrollmentRequest
type UpdateEnrollmentRequest struct {
	Status model.EnrollmentStatus `json:"status" binding:"required"`
}

// Enroll godoc
// @Summary 报名课程
// @Description 免费课程立即生效；收费课程进入 pending 并返回 WhatsApp 联系链接
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 201 {object} util.Response{data=service.EnrollResult}
// @Failure 409 {object} util.Response "已报名"
// @Router /api/courses/{id}/enroll [post]
func (c *EnrollmentController) Enroll(ctx *gin.Context) {
	courseID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	result, err := c.EnrollmentService.Enroll(access.FromContext(ctx), courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// MyEnrollments godoc
// @Summary 我的报名
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.MyEnrollment}
// @Router /api/enrollments/me [get]
func (c *EnrollmentController) MyEnrollments(ctx *gin.Context) {
	enrollments, err := c.EnrollmentService.MyEnrollments(access.FromContext(ctx))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, enrollments)
}

// CourseStudents godoc
// @Summary 课程的报名学生
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]service.CourseStudent}
// @Router /api/courses/{id}/students [get]
func (c *EnrollmentController) CourseStudents(ctx *gin.Context) {
	courseID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	students, err := c.EnrollmentService.CourseStudents(access.FromContext(ctx), courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, students)
}

// ListEnrollments godoc
// @Summary 报名列表（超级管理员）
// @Tags 报名
// @Produce  json
// @Security ApiKeyAuth
// @Param   status query string false "pending / confirmed / free"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/enrollments [get]
func (c *EnrollmentController) ListEnrollments(ctx *gin.Context) {
	page, limit := util.Pagination(ctx)
	enrollments, total, err := c.EnrollmentService.List(model.EnrollmentStatus(ctx.Query("status")), page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Page(ctx, enrollments, total, page, limit)
}

// UpdateEnrollment godoc
// @Summary 确认报名
// @Description 只允许 pending -> confirmed
// @Tags 报名
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "报名ID"
// @Param   body body UpdateEnrollmentRequest true "新状态"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Failure 400 {object} util.Response "状态转换不合法"
// @Router /api/admin/enrollments/{id} [patch]
func (c *EnrollmentController) UpdateEnrollment(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req UpdateEnrollmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	enrollment, err := c.EnrollmentService.UpdateStatus(access.FromContext(ctx), id, req.Status)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}
