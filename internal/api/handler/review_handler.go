package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/storefront/internal/api/middleware"
	"github.com/d60-Lab/storefront/pkg/response"
)

type createReviewRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required,min=1,max=5"`
	Comment   string `json:"comment" binding:"max=2000"`
}

// CreateReview 发表评价
// @Summary 发表评价（仅限已付款订单中的商品，每人每商品一次）
// @Tags 评价
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createReviewRequest true "评价"
// @Success 201 {object} response.Response{data=model.Review}
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/v1/reviews [post]
func (h *Handler) CreateReview(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	review, err := h.reviewService.Create(c.Request.Context(), middleware.CurrentUser(c).ID, req.ProductID, req.Rating, req.Comment)
	if err != nil {
		renderError(c, err)
		return
	}
	response.Created(c, review)
}

// ListReviews 商品评价
// @Summary 商品评价列表，最新在前
// @Tags 评价
// @Produce json
// @Param productId path string true "商品ID"
// @Success 200 {object} response.Response{data=[]model.Review}
// @Router /api/v1/reviews/{productId} [get]
func (h *Handler) ListReviews(c *gin.Context) {
	reviews, err := h.reviewService.ListByProduct(c.Request.Context(), c.Param("productId"))
	if err != nil {
		renderError(c, err)
		return
	}
	response.Success(c, reviews)
}
