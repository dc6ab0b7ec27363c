package controller

import (
	"manhaj_backend/internal/service"
	"manhaj_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	ReportService  *service.ReportService
	SettingService *service.SettingService
}

func NewAdminController(reportService *service.ReportService, settingService *service.SettingService) *AdminController {
	return &AdminController{ReportService: reportService, SettingService: settingService}
}

// GetStats godoc
// @Summary 平台统计
// @Tags 管理
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.PlatformStats}
// @Router /api/admin/stats [get]
func (c *AdminController) GetStats(ctx *gin.Context) {
	stats, err := c.ReportService.Stats(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// TeacherReport godoc
// @Summary 教师报表
// @Tags 管理
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]repository.TeacherReportRow}
// @Router /api/admin/reports/teachers [get]
func (c *AdminController) TeacherReport(ctx *gin.Context) {
	rows, err := c.ReportService.Teachers()
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// CourseReport godoc
// @Summary 课程报表
// @Tags 管理
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]repository.CourseReportRow}
// @Router /api/admin/reports/courses [get]
func (c *AdminController) CourseReport(ctx *gin.Context) {
	rows, err := c.ReportService.Courses()
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// GetSettings godoc
// @Summary 平台设置
// @Description 公开接口，前端用于展示站点名称和 WhatsApp 号码
// @Tags 设置
// @Produce  json
// @Success 200 {object} util.Response
// @Router /api/settings [get]
func (c *AdminController) GetSettings(ctx *gin.Context) {
	settings, err := c.SettingService.All()
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, settings)
}

// UpdateSettings godoc
// @Summary 更新平台设置
// @Tags 设置
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body map[string]string true "键值对"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "未知的设置项"
// @Router /api/admin/settings [put]
func (c *AdminController) UpdateSettings(ctx *gin.Context) {
	var req map[string]string
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	settings, err := c.SettingService.Update(req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, settings)
}
