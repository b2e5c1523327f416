package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
)

// CouponRepository 优惠券仓储接口
type CouponRepository interface {
	Create(ctx context.Context, c *model.Coupon) error
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	List(ctx context.Context) ([]*model.Coupon, error)
	Delete(ctx context.Context, id string) (bool, error)
	// ConsumeUse 原子扣减一次使用次数；券不可用时返回 false
	ConsumeUse(ctx context.Context, id string, now time.Time) (bool, error)
	// ReleaseUse 归还一次使用次数
	ReleaseUse(ctx context.Context, code string) error
}

type couponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository { return &couponRepository{db: db} }

func (r *couponRepository) Create(ctx context.Context, c *model.Coupon) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var c model.Coupon
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepository) List(ctx context.Context) ([]*model.Coupon, error) {
	var res []*model.Coupon
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&res).Error
	return res, err
}

func (r *couponRepository) Delete(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Coupon{})
	return res.RowsAffected > 0, res.Error
}

func (r *couponRepository) ConsumeUse(ctx context.Context, id string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Coupon{}).
		Where("id = ? AND remaining_uses > 0 AND is_active = ? AND expiry_date > ?", id, true, now).
		Update("remaining_uses", gorm.Expr("remaining_uses - 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *couponRepository) ReleaseUse(ctx context.Context, code string) error {
	return r.db.WithContext(ctx).
		Model(&model.Coupon{}).
		Where("code = ?", code).
		Update("remaining_uses", gorm.Expr("remaining_uses + 1")).Error
}
