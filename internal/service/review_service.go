package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
)

var textPolicy = bluemonday.StrictPolicy()

// sanitizeText 去除所有 HTML，只保留纯文本
func sanitizeText(s string) string {
	return strings.TrimSpace(textPolicy.Sanitize(s))
}

// ReviewService 商品评价
type ReviewService interface {
	// Create 仅允许已付款订单中包含该商品的用户评价一次
	Create(ctx context.Context, userID, productID string, rating int, comment string) (*model.Review, error)
	ListByProduct(ctx context.Context, productID string) ([]*model.Review, error)
}

type reviewService struct {
	reviews  repository.ReviewRepository
	orders   repository.OrderRepository
	products repository.ProductRepository
}

func NewReviewService(reviews repository.ReviewRepository, orders repository.OrderRepository, products repository.ProductRepository) ReviewService {
	return &reviewService{reviews: reviews, orders: orders, products: products}
}

func (s *reviewService) Create(ctx context.Context, userID, productID string, rating int, comment string) (*model.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrInvalidInput)
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	exists, err := s.reviews.Exists(ctx, userID, productID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyReviewed
	}
	bought, err := s.orders.HasPurchased(ctx, userID, productID, model.ReviewableStatuses())
	if err != nil {
		return nil, err
	}
	if !bought {
		return nil, ErrNotPurchased
	}

	r := &model.Review{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Rating:    rating,
		Comment:   sanitizeText(comment),
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *reviewService) ListByProduct(ctx context.Context, productID string) ([]*model.Review, error) {
	return s.reviews.ListByProduct(ctx, productID)
}
