package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")

	ErrOrderNotFound          = errors.New("order not found")
	ErrInvalidTransition      = errors.New("invalid status transition")
	ErrConcurrentModification = errors.New("order was modified concurrently")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrReceiptRequired        = errors.New("receipt image is required")

	ErrProductNotFound = errors.New("product not found")
	ErrProductActive   = errors.New("product is linked to active orders")
	ErrProductLinked   = errors.New("product is linked to existing orders")

	ErrCouponNotFound  = errors.New("coupon not found")
	ErrCouponInactive  = errors.New("coupon is inactive")
	ErrCouponExpired   = errors.New("coupon has expired")
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	ErrCouponExists    = errors.New("coupon code already exists")

	ErrNoPaymentRef         = errors.New("no payment reference on order")
	ErrPaymentNotSuccessful = errors.New("payment not successful")
	ErrPaymentInit          = errors.New("payment initialization failed")
	ErrPaymentGateway       = errors.New("payment gateway error")

	ErrNotPurchased    = errors.New("you can only review products you have purchased")
	ErrAlreadyReviewed = errors.New("already reviewed")

	ErrCommentNotFound = errors.New("comment not found")

	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("email or username already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrCannotSuspendAdmin = errors.New("admins cannot be suspended")
)

// notFound maps gorm's sentinel to a domain error, leaving other errors untouched.
func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
