package controller

import (
	"strconv"

	"manhaj_backend/internal/access"
	"manhaj_backend/internal/service"
	"manhaj_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	NotificationService *service.NotificationService
}

func NewNotificationController(notificationService *service.NotificationService) *NotificationController {
	return &NotificationController{NotificationService: notificationService}
}

// GetNotifications godoc
// @Summary 我的通知
// @Description 按时间倒序，每条附带跳转路径
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Param   unreadOnly query bool false "只看未读"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页条数" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/notifications [get]
func (c *NotificationController) GetNotifications(ctx *gin.Context) {
	p := access.FromContext(ctx)
	page, limit := util.Pagination(ctx)
	unreadOnly, _ := strconv.ParseBool(ctx.Query("unreadOnly"))

	items, total, err := c.NotificationService.List(p.UserID, p.Role, unreadOnly, page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Page(ctx, items, total, page, limit)
}

// UnreadCount godoc
// @Summary 未读数量
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/notifications/unread-count [get]
func (c *NotificationController) UnreadCount(ctx *gin.Context) {
	count, err := c.NotificationService.UnreadCount(ctx.Request.Context(), access.FromContext(ctx).UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"count": count})
}

// OpenNotification godoc
// @Summary 打开通知
// @Description 标记为已读并返回跳转路径
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "通知ID"
// @Success 200 {object} util.Response
// @Failure 404 {object} util.Response "不存在或不属于当前用户"
// @Router /api/notifications/{id}/open [post]
func (c *NotificationController) OpenNotification(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	p := access.FromContext(ctx)
	path, err := c.NotificationService.Open(ctx.Request.Context(), p.UserID, p.Role, id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"path": path})
}

// MarkRead godoc
// @Summary 标记已读
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "通知ID"
// @Success 200 {object} util.Response
// @Router /api/notifications/{id}/read [patch]
func (c *NotificationController) MarkRead(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if err := c.NotificationService.MarkRead(ctx.Request.Context(), access.FromContext(ctx).UserID, id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// MarkAllRead godoc
// @Summary 全部标记已读
// @Tags 通知
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/notifications/read-all [patch]
func (c *NotificationController) MarkAllRead(ctx *gin.Context) {
	updated, err := c.NotificationService.MarkAllRead(ctx.Request.Context(), access.FromContext(ctx).UserID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"updated": updated})
}
