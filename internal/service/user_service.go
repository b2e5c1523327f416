package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
)

// Stats 管理后台概览
type Stats struct {
	Users    int64           `json:"users"`
	Products int64           `json:"products"`
	Orders   int64           `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// UserService 管理员用户管理
type UserService interface {
	List(ctx context.Context) ([]*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
	// ToggleSuspension 切换封禁状态，管理员不可被封禁
	ToggleSuspension(ctx context.Context, id, reason string) (*model.User, error)
	Stats(ctx context.Context) (*Stats, error)
	Receipts(ctx context.Context, userID string) ([]string, error)
}

type userService struct {
	users    repository.UserRepository
	products repository.ProductRepository
	orders   repository.OrderRepository
}

func NewUserService(users repository.UserRepository, products repository.ProductRepository, orders repository.OrderRepository) UserService {
	return &userService{users: users, products: products, orders: orders}
}

func (s *userService) List(ctx context.Context) ([]*model.User, error) {
	return s.users.List(ctx)
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return u, nil
}

func (s *userService) ToggleSuspension(ctx context.Context, id, reason string) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsAdmin() {
		return nil, ErrCannotSuspendAdmin
	}
	suspend := !u.IsSuspended
	reason = strings.TrimSpace(reason)
	if !suspend {
		reason = ""
	} else if reason == "" {
		reason = "Suspended by administrator"
	}
	if err := s.users.Updates(ctx, id, map[string]any{
		"is_suspended":      suspend,
		"suspension_reason": reason,
	}); err != nil {
		return nil, err
	}
	u.IsSuspended = suspend
	u.SuspensionReason = reason
	return u, nil
}

func (s *userService) Stats(ctx context.Context) (*Stats, error) {
	var (
		st  Stats
		err error
	)
	if st.Users, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if st.Products, err = s.products.Count(ctx); err != nil {
		return nil, err
	}
	if st.Orders, err = s.orders.Count(ctx); err != nil {
		return nil, err
	}
	if st.Revenue, err = s.orders.Revenue(ctx, model.ReviewableStatuses()); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *userService) Receipts(ctx context.Context, userID string) ([]string, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return nil, err
	}
	return s.orders.ReceiptsByUser(ctx, userID, model.AllOrderStatuses())
}
