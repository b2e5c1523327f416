package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
)

type ReviewRepository interface {
	Create(ctx context.Context, r *model.Review) error
	Exists(ctx context.Context, userID, productID string) (bool, error)
	ListByProduct(ctx context.Context, productID string) ([]*model.Review, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository { return &reviewRepository{db: db} }

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

func (r *reviewRepository) Exists(ctx context.Context, userID, productID string) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *reviewRepository) ListByProduct(ctx context.Context, productID string) ([]*model.Review, error) {
	var res []*model.Review
	err := r.db.WithContext(ctx).
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "full_name") }).
		Where("product_id = ?", productID).
		Order("created_at DESC").
		Find(&res).Error
	return res, err
}
