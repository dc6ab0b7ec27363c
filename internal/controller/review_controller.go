package controller

import (
	"manhaj_backend/internal/access"
	"manhaj_backend/internal/service"
	"manhaj_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	ReviewService *service.ReviewService
}

func NewReviewController(reviewService *service.ReviewService) *ReviewController {
	return &ReviewController{ReviewService: reviewService}
}

type ReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

type AnnouncementRequest struct {
	Title   string `json:"title" binding:"required,max=255"`
	Content string `json:"content" binding:"required"`
}

// ListReviews godoc
// @Summary 课程评价
// @Tags 评价
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.ReviewList}
// @Router /api/courses/{id}/reviews [get]
func (c *ReviewController) ListReviews(ctx *gin.Context) {
	courseID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	list, err := c.ReviewService.ListReviews(courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// CreateReview godoc
// @Summary 评价课程
// @Description 已获得访问权的学生每门课程评价一次
// @Tags 评价
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body ReviewRequest true "评价"
// @Success 201 {object} util.Response{data=model.CourseReview}
// @Failure 409 {object} util.Response "已评价"
// @Router /api/courses/{id}/reviews [post]
func (c *ReviewController) CreateReview(ctx *gin.Context) {
	courseID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	review, err := c.ReviewService.CreateReview(access.FromContext(ctx), courseID, req.Rating, req.Comment)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, review)
}

// ListAnnouncements godoc
// @Summary 课程公告
// @Tags 评价
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.CourseAnnouncement}
// @Router /api/courses/{id}/announcements [get]
func (c *ReviewController) ListAnnouncements(ctx *gin.Context) {
	courseID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	list, err := c.ReviewService.ListAnnouncements(access.FromContext(ctx), courseID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// CreateAnnouncement godoc
// @Summary 发布公告
// @Tags 评价
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课程ID"
// @Param   body body AnnouncementRequest true "公告"
// @Success 201 {object} util.Response{data=model.CourseAnnouncement}
// @Router /api/courses/{id}/announcements [post]
func (c *ReviewController) CreateAnnouncement(ctx *gin.Context) {
	courseID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req AnnouncementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	announcement, err := c.ReviewService.CreateAnnouncement(access.FromContext(ctx), courseID, req.Title, req.Content)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, announcement)
}
