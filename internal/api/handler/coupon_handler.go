package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/response"
)

type validateCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// ValidateCoupon 校验优惠券
// @Summary 校验优惠券（不扣减次数）
// @Tags 优惠券
// @Accept json
// @Produce json
// @Param request body validateCouponRequest true "券码"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/v1/coupons/validate [post]
func (h *Handler) ValidateCoupon(c *gin.Context) {
	var req validateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	coupon, err := h.couponService.Validate(c.Request.Context(), req.Code)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, gin.H{"code": coupon.Code, "discount_percent": coupon.DiscountPercent})
}

// CreateCoupon 新建优惠券
// @Summary 新建优惠券（管理员）
// @Tags 优惠券
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateCouponInput true "优惠券"
// @Success 201 {object} response.Response{data=model.Coupon}
// @Failure 409 {object} response.Response
// @Router /api/v1/coupons [post]
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req service.CreateCouponInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	coupon, err := h.couponService.Create(c.Request.Context(), req)
	if err != nil {
		renderError(c, err)
		return
	}
	h.record(c, model.AuditCreateCoupon, coupon.ID, gin.H{"code": coupon.Code, "discount_percent": coupon.DiscountPercent})
	response.Created(c, coupon)
}

// ListCoupons 优惠券列表
// @Summary 优惠券列表（管理员）
// @Tags 优惠券
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response{data=[]model.Coupon}
// @Router /api/v1/coupons [get]
func (h *Handler) ListCoupons(c *gin.Context) {
	coupons, err := h.couponService.List(c.Request.Context())
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, coupons)
}

// DeleteCoupon 删除优惠券
// @Summary 删除优惠券（管理员）
// @Tags 优惠券
// @Produce json
// @Security BearerAuth
// @Param id path string true "优惠券ID"
// @Success 200 {object} response.Response
// @Router /api/v1/coupons/{id} [delete]
func (h *Handler) DeleteCoupon(c *gin.Context) {
	id := c.Param("id")
	if err := h.couponService.Delete(c.Request.Context(), id); err != nil {
		renderError(c, err)
		return
	}
	h.record(c, model.AuditDeleteCoupon, id, nil)
	response.Success(c, nil)
}
