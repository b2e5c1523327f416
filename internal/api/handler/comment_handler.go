package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/storefront/internal/api/middleware"
	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/pkg/response"
)

type commentRequest struct {
	Message string `json:"message" binding:"required,max=2000"`
}

type replyRequest struct {
	Reply string `json:"reply" binding:"required,max=2000"`
}

// CreateComment 留言
// @Summary 给店铺留言
// @Tags 留言
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body commentRequest true "留言"
// @Success 201 {object} response.Response{data=model.Comment}
// @Router /api/v1/comments [post]
func (h *Handler) CreateComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	comment, err := h.commentService.Create(c.Request.Context(), middleware.CurrentUser(c).ID, req.Message)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Created(c, comment)
}

// ListComments 留言列表（管理员）
// @Summary 留言列表
// @Tags 留言
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.Comment}
// @Router /api/v1/comments [get]
func (h *Handler) ListComments(c *gin.Context) {
	comments, err := h.commentService.List(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, comments)
}

// ReplyComment 回复留言（管理员）
// @Summary 回复留言
// @Tags 留言
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "留言ID"
// @Param request body replyRequest true "回复"
// @Success 200 {object} response.Response{data=model.Comment}
// @Router /api/v1/comments/{id} [put]
func (h *Handler) ReplyComment(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	comment, err := h.commentService.Reply(c.Request.Context(), c.Param("id"), req.Reply)
	if err != nil {
		renderError(c, err)
		return
	}
	h.record(c, model.AuditReplyComment, comment.ID, nil)
	response.Success(c, comment)
}

// DeleteComment 删除留言（管理员）
// @Summary 删除留言
// @Tags 留言
// @Produce json
// @Security BearerAuth
// @Param id path string true "留言ID"
// @Success 200 {object} response.Response
// @Router /api/v1/comments/{id} [delete]
func (h *Handler) DeleteComment(c *gin.Context) {
	id := c.Param("id")
	if err := h.commentService.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	h.record(c, model.AuditDeleteComment, id, nil)
	response.Success(c, nil)
}
