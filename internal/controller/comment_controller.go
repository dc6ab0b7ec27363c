package controller

import (
	"manhaj_backend/internal/access"
	"manhaj_backend/internal/service"
	"manhaj_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CommentController struct {
	CommentService *service.CommentService
}

func NewCommentController(commentService *service.CommentService) *CommentController {
	return &CommentController{CommentService: commentService}
}

type CommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListComments godoc
// @Summary 课时问答
// @Description 学生只能看到自己的提问及其回复；教师和超级管理员看到全部
// @Tags 问答
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=[]model.LessonComment}
// @Router /api/lessons/{id}/comments [get]
func (c *CommentController) ListComments(ctx *gin.Context) {
	lessonID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	comments, err := c.CommentService.List(access.FromContext(ctx), lessonID)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, comments)
}

// AskQuestion godoc
// @Summary 提问
// @Tags 问答
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Param   body body CommentRequest true "问题内容"
// @Success 201 {object} util.Response{data=model.LessonComment}
// @Router /api/lessons/{id}/comments [post]
func (c *CommentController) AskQuestion(ctx *gin.Context) {
	lessonID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	comment, err := c.CommentService.Ask(access.FromContext(ctx), lessonID, req.Content)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, comment)
}

// ReplyQuestion godoc
// @Summary 教师回复
// @Description 只能回复顶层问题
// @Tags 问答
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "课时ID"
// @Param   commentId path int true "问题ID"
// @Param   body body CommentRequest true "回复内容"
// @Success 201 {object} util.Response{data=model.LessonComment}
// @Router /api/lessons/{id}/comments/{commentId}/replies [post]
func (c *CommentController) ReplyQuestion(ctx *gin.Context) {
	lessonID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	parentID, err := util.ParamID(ctx, "commentId")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req CommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	reply, err := c.CommentService.Reply(access.FromContext(ctx), lessonID, parentID, req.Content)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, reply)
}

// DeleteComment godoc
// @Summary 删除评论
// @Tags 问答
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "评论ID"
// @Success 200 {object} util.Response
// @Router /api/comments/{id} [delete]
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	if err := c.CommentService.Delete(access.FromContext(ctx), id); err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
