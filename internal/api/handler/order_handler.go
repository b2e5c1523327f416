package handler

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/storefront/internal/api/middleware"
	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/response"
)

type updateStatusRequest struct {
	Status  model.OrderStatus `json:"status" binding:"required"`
	Comment string            `json:"comment"`
}

// CreateOrder 下单
// @Summary 下单：扣减库存与优惠券；未上传付款凭证时返回在线支付地址
// @Tags 订单
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param products formData string true "购物车 JSON：[{product, quantity}]"
// @Param deliveryInfo formData string true "收货信息 JSON：{name, phone, email, address}"
// @Param couponCode formData string false "优惠券"
// @Param receiptImage formData file false "线下转账凭证"
// @Success 201 {object} response.Response{data=service.CreateOrderResult}
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/orders [post]
func (h *Handler) CreateOrder(c *gin.Context) {
	var lines []service.CartLine
	if err := json.Unmarshal([]byte(c.PostForm("products")), &lines); err != nil {
		response.BadRequest(c, "products must be a JSON array of {product, quantity}")
		return
	}
	var delivery model.DeliveryInfo
	if err := json.Unmarshal([]byte(c.PostForm("deliveryInfo")), &delivery); err != nil {
		response.BadRequest(c, "deliveryInfo must be a JSON object")
		return
	}
	receipt, err := h.saveImage(c, "receiptImage", "receipts")
	if err != nil {
		renderError(c, err)
		return
	}

	result, err := h.orderService.Create(c.Request.Context(), service.CreateOrderInput{
		UserID:       middleware.CurrentUser(c).ID,
		Lines:        lines,
		Delivery:     delivery,
		CouponCode:   c.PostForm("couponCode"),
		ReceiptImage: receipt,
	})
	if err != nil {
		h.discardImage(receipt)
		renderError(c, err)
		return
	}
	response.Created(c, result)
}

// MyOrders 我的订单
// @Summary 当前用户订单，最新在前
// @Tags 订单
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.Order}
// @Router /api/v1/orders/me [get]
func (h *Handler) MyOrders(c *gin.Context) {
	orders, err := h.orderService.ListMine(c.Request.Context(), middleware.CurrentUser(c).ID)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, orders)
}

// GetOrder 订单详情
// @Summary 订单详情（本人或管理员）
// @Tags 订单
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/orders/{id} [get]
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.orderService.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 订单列表
// @Summary 全部订单（管理员，分页）
// @Tags 订单
// @Produce json
// @Security BearerAuth
// @Param status query string false "状态"
// @Param user_id query string false "用户ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} response.Response
// @Router /api/v1/orders [get]
func (h *Handler) ListOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	status := model.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		response.BadRequest(c, fmt.Sprintf("unknown status %q", status))
		return
	}
	orders, total, err := h.orderService.ListAll(c.Request.Context(), repository.OrderFilter{
		Status:   status,
		UserID:   c.Query("user_id"),
		Page:     page,
		PageSize: size,
	})
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, gin.H{"items": orders, "total": total, "page": page, "page_size": size})
}

// UpdateOrderStatus 修改订单状态
// @Summary 修改订单状态（管理员）。非法流转返回 403，并发冲突返回 409
// @Tags 订单
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Param request body updateStatusRequest true "目标状态"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 403 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/orders/{id} [put]
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	admin := middleware.CurrentUser(c)
	order, err := h.statusService.UpdateStatus(c.Request.Context(), admin.ID, c.Param("id"), req.Status, req.Comment)
	if err != nil {
		renderError(c, err)
		return
	}
	h.record(c, model.AuditUpdateOrderStatus, order.ID, gin.H{"status": req.Status, "comment": req.Comment})
	response.Success(c, order)
}

// CancelOrder 取消订单
// @Summary 用户取消自己的待付款/待审核订单
// @Tags 订单
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 403 {object} response.Response
// @Router /api/v1/orders/{id}/cancel [put]
func (h *Handler) CancelOrder(c *gin.Context) {
	order, err := h.statusService.Cancel(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, order)
}

// ResubmitReceipt 重新上传付款凭证
// @Summary 重新上传付款凭证，订单回到待审核
// @Tags 订单
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Param receiptImage formData file true "付款凭证"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/orders/{id}/resubmit [put]
func (h *Handler) ResubmitReceipt(c *gin.Context) {
	receipt, err := h.saveImage(c, "receiptImage", "receipts")
	if err != nil {
		renderError(c, err)
		return
	}
	order, err := h.statusService.ResubmitReceipt(c.Request.Context(), middleware.CurrentUser(c).ID, c.Param("id"), receipt)
	if err != nil {
		h.discardImage(receipt)
		renderError(c, err)
		return
	}
	response.Success(c, order)
}

// VerifyPayment 核验在线支付
// @Summary 向支付网关核验订单付款结果，成功则订单变为 verified
// @Tags 支付
// @Produce json
// @Security BearerAuth
// @Param id path string true "订单ID"
// @Success 200 {object} response.Response{data=model.Order}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/payment/verify/{id} [get]
func (h *Handler) VerifyPayment(c *gin.Context) {
	// 先做归属校验，避免他人触发核验
	if _, err := h.orderService.Get(c.Request.Context(), middleware.CurrentUser(c), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	order, err := h.paymentService.Verify(c.Request.Context(), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, order)
}
