package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/api/middleware"
	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/pkg/logger"
	"github.com/d60-Lab/storefront/pkg/response"
)

type suspendRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

type resubmissionRequest struct {
	Reason string `json:"reason" binding:"required,max=512"`
}

// Stats 后台概览
// @Summary 用户数、商品数、订单数与已确认收入
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=service.Stats}
// @Router /api/v1/admin/stats [get]
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.userService.Stats(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, stats)
}

// ListUsers 用户列表
// @Summary 用户列表
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.User}
// @Router /api/v1/admin/users [get]
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, users)
}

// GetUser 用户详情
// @Summary 用户详情
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 404 {object} response.Response
// @Router /api/v1/admin/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	user, err := h.userService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, user)
}

// ToggleSuspension 封禁/解封用户
// @Summary 切换用户封禁状态（管理员不可被封禁）
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Param request body suspendRequest false "封禁原因"
// @Success 200 {object} response.Response{data=model.User}
// @Failure 403 {object} response.Response
// @Router /api/v1/admin/users/{id}/suspend [put]
func (h *Handler) ToggleSuspension(c *gin.Context) {
	var req suspendRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	user, err := h.userService.ToggleSuspension(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		renderError(c, err)
		return
	}
	action := model.AuditUnsuspendUser
	if user.IsSuspended {
		action = model.AuditSuspendUser
	}
	h.record(c, action, user.ID, gin.H{"reason": req.Reason})
	response.Success(c, user)
}

// UserReceipts 用户付款凭证
// @Summary 用户已确认订单中的付款凭证
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "用户ID"
// @Success 200 {object} response.Response
// @Router /api/v1/admin/users/{id}/receipts [get]
func (h *Handler) UserReceipts(c *gin.Context) {
	receipts, err := h.userService.Receipts(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, gin.H{"receipts": receipts})
}

// CommitOrder 确认交易完成
// @Summary 管理员确认订单完成
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 403 {object} response.Response
// @Router /api/v1/admin/orders/{id}/commit [put]
func (h *Handler) CommitOrder(c *gin.Context) {
	order, err := h.statusService.Commit(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	h.record(c, model.AuditCommitOrder, order.ID, nil)
	response.Success(c, order)
}

// RequestResubmission 驳回付款凭证
// @Summary 驳回付款凭证并要求用户重新上传
// @Tags 管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Param request body resubmissionRequest true "驳回原因"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 403 {object} response.Response
// @Router /api/v1/admin/orders/{id}/resubmit-receipt [post]
func (h *Handler) RequestResubmission(c *gin.Context) {
	var req resubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	order, err := h.statusService.RequestResubmission(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), req.Reason)
	if err != nil {
		renderError(c, err)
		return
	}
	h.record(c, model.AuditRequestResubmission, order.ID, gin.H{"reason": req.Reason})
	response.Success(c, order)
}

// AuditLogs 操作日志
// @Summary 最近 100 条管理员操作
// @Tags 管理
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.AuditLog}
// @Router /api/v1/admin/logs [get]
func (h *Handler) AuditLogs(c *gin.Context) {
	logs, err := h.auditService.ListRecent(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, logs)
}

// OrderStream 实时订单流
// @Summary 订单事件 websocket（令牌可通过 token 查询参数传递）
// @Tags 管理
// @Security BearerAuth
// @Param token query string false "访问令牌"
// @Router /api/v1/admin/orders/stream [get]
func (h *Handler) OrderStream(c *gin.Context) {
	if h.hub == nil {
		response.NotFound(c, "order stream is disabled")
		return
	}
	if err := h.hub.Serve(c.Writer, c.Request); err != nil {
		// 升级失败时 gorilla 已写回错误响应
		logger.Warn("order stream upgrade failed", zap.Error(err), zap.String("admin_id", middleware.CurrentUser(c).ID))
	}
}

// BankConfig 线下转账账户
// @Summary 店铺收款账户（线下转账）
// @Tags 配置
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/config/bank [get]
func (h *Handler) BankConfig(c *gin.Context) {
	response.Success(c, gin.H{
		"admin_full_name":      h.store.AdminFullName,
		"admin_account_number": h.store.AdminAccountNumber,
	})
}

// Health 健康检查
// @Summary 健康检查
// @Tags 配置
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/health [get]
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
