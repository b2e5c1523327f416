package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
)

// CreateCouponInput 创建优惠券参数
type CreateCouponInput struct {
	Code            string    `json:"code" validate:"required,max=64"`
	DiscountPercent int       `json:"discount_percent" validate:"min=1,max=100"`
	RemainingUses   int       `json:"remaining_uses" validate:"min=0"`
	ExpiryDate      time.Time `json:"expiry_date" validate:"required"`
}

// CouponService 优惠券账本
type CouponService interface {
	// Validate 校验券码是否可用，不扣减次数
	Validate(ctx context.Context, code string) (*model.Coupon, error)
	Create(ctx context.Context, in CreateCouponInput) (*model.Coupon, error)
	List(ctx context.Context) ([]*model.Coupon, error)
	Delete(ctx context.Context, id string) error
	// Release 归还一次使用次数（下单失败补偿）
	Release(ctx context.Context, code string) error
}

type couponService struct {
	repo repository.CouponRepository
	now  func() time.Time
}

func NewCouponService(repo repository.CouponRepository) CouponService {
	return &couponService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *couponService) Validate(ctx context.Context, code string) (*model.Coupon, error) {
	code = model.NormalizeCouponCode(code)
	if code == "" {
		return nil, fmt.Errorf("%w: coupon code is required", ErrInvalidInput)
	}
	c, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, ErrCouponNotFound)
	}
	if err := checkCoupon(c, s.now()); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *couponService) Create(ctx context.Context, in CreateCouponInput) (*model.Coupon, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	code := model.NormalizeCouponCode(in.Code)
	if code == "" {
		return nil, fmt.Errorf("%w: coupon code is required", ErrInvalidInput)
	}
	if !in.ExpiryDate.After(s.now()) {
		return nil, fmt.Errorf("%w: expiry date must be in the future", ErrInvalidInput)
	}
	if _, err := s.repo.GetByCode(ctx, code); err == nil {
		return nil, ErrCouponExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c := &model.Coupon{
		ID:              uuid.NewString(),
		Code:            code,
		DiscountPercent: in.DiscountPercent,
		RemainingUses:   in.RemainingUses,
		ExpiryDate:      in.ExpiryDate.UTC(),
		IsActive:        true,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *couponService) List(ctx context.Context) ([]*model.Coupon, error) {
	return s.repo.List(ctx)
}

func (s *couponService) Delete(ctx context.Context, id string) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCouponNotFound
	}
	return nil
}

func (s *couponService) Release(ctx context.Context, code string) error {
	code = model.NormalizeCouponCode(code)
	if code == "" {
		return nil
	}
	return s.repo.ReleaseUse(ctx, code)
}

func checkCoupon(c *model.Coupon, now time.Time) error {
	switch {
	case !c.IsActive:
		return ErrCouponInactive
	case c.Expired(now):
		return ErrCouponExpired
	case c.RemainingUses <= 0:
		return ErrCouponExhausted
	}
	return nil
}

// applyCoupon 仅在下单事务内调用，repo 必须由事务句柄构造
func applyCoupon(ctx context.Context, repo repository.CouponRepository, code string, now time.Time) (*model.Coupon, error) {
	c, err := repo.GetByCode(ctx, strings.ToUpper(code))
	if err != nil {
		return nil, notFound(err, ErrCouponNotFound)
	}
	if err := checkCoupon(c, now); err != nil {
		return nil, err
	}
	ok, err := repo.ConsumeUse(ctx, c.ID, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCouponExhausted
	}
	c.RemainingUses--
	return c, nil
}
