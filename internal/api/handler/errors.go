package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/storefront/internal/service"
	"github.com/d60-Lab/storefront/pkg/response"
)

// renderError 把业务错误翻译成 HTTP 状态码
func renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCouponNotFound),
		errors.Is(err, service.ErrCommentNotFound),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, err.Error())

	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrNotPurchased),
		errors.Is(err, service.ErrAccountSuspended),
		errors.Is(err, service.ErrCannotSuspendAdmin):
		response.Forbidden(c, err.Error())

	case errors.Is(err, service.ErrInvalidCredentials):
		response.Unauthorized(c, err.Error())

	case errors.Is(err, service.ErrConcurrentModification),
		errors.Is(err, service.ErrUserExists),
		errors.Is(err, service.ErrCouponExists):
		response.Conflict(c, err.Error())

	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrReceiptRequired),
		errors.Is(err, service.ErrProductActive),
		errors.Is(err, service.ErrProductLinked),
		errors.Is(err, service.ErrCouponInactive),
		errors.Is(err, service.ErrCouponExpired),
		errors.Is(err, service.ErrCouponExhausted),
		errors.Is(err, service.ErrAlreadyReviewed),
		errors.Is(err, service.ErrNoPaymentRef),
		errors.Is(err, service.ErrPaymentNotSuccessful):
		response.BadRequest(c, err.Error())

	case errors.Is(err, service.ErrPaymentInit):
		response.InternalErrorMessage(c, err, service.ErrPaymentInit.Error())
	case errors.Is(err, service.ErrPaymentGateway):
		response.InternalErrorMessage(c, err, service.ErrPaymentGateway.Error())

	default:
		response.InternalError(c, err)
	}
}
