package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/pkg/logger"
)

// CartLine 购物车中的一行
type CartLine struct {
	ProductID string `json:"product" validate:"required"`
	Quantity  int    `json:"quantity" validate:"min=1"`
}

// CreateOrderInput 下单参数
type CreateOrderInput struct {
	UserID       string             `validate:"required"`
	Lines        []CartLine         `validate:"required,min=1,dive"`
	Delivery     model.DeliveryInfo `validate:"required"`
	CouponCode   string
	ReceiptImage string
}

// CreateOrderResult 下单结果；未上传凭证时附带支付地址
type CreateOrderResult struct {
	Order      *model.Order `json:"order"`
	PaymentURL string       `json:"payment_url,omitempty"`
}

// OrderService 订单服务
type OrderService interface {
	// Create 在一个事务内校验库存、扣减库存与优惠券并落库
	Create(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error)
	// Get 订单详情，仅本人或管理员可见
	Get(ctx context.Context, requester *model.User, id string) (*model.Order, error)
	ListMine(ctx context.Context, userID string) ([]*model.Order, error)
	ListAll(ctx context.Context, filter repository.OrderFilter) ([]*model.Order, int64, error)
}

type orderService struct {
	db       *gorm.DB
	orders   repository.OrderRepository
	users    repository.UserRepository
	engine   TransitionEngine
	payments PaymentService
	coupons  CouponService
	notifier NotificationSink
	catalog  CatalogInvalidator
	now      func() time.Time
}

func NewOrderService(
	db *gorm.DB,
	engine TransitionEngine,
	payments PaymentService,
	coupons CouponService,
	notifier NotificationSink,
	catalog CatalogInvalidator,
) OrderService {
	return &orderService{
		db:       db,
		orders:   repository.NewOrderRepository(db),
		users:    repository.NewUserRepository(db),
		engine:   engine,
		payments: payments,
		coupons:  coupons,
		notifier: notifier,
		catalog:  catalog,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *orderService) Create(ctx context.Context, in CreateOrderInput) (*CreateOrderResult, error) {
	ctx, span := tracer.Start(ctx, "order.create")
	defer span.End()

	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	lines := mergeLines(in.Lines)
	code := model.NormalizeCouponCode(in.CouponCode)
	now := s.now()

	order := &model.Order{
		ID:           uuid.NewString(),
		UserID:       in.UserID,
		CouponCode:   code,
		DeliveryInfo: in.Delivery,
		ReceiptImage: strings.TrimSpace(in.ReceiptImage),
		Status:       model.OrderStatusPendingPayment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	order.DeliveryInfo.Email = strings.ToLower(strings.TrimSpace(order.DeliveryInfo.Email))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		products := repository.NewProductRepository(tx)

		subtotal := decimal.Zero
		items := make([]model.OrderItem, 0, len(lines))
		for _, l := range lines {
			p, err := products.GetByID(ctx, l.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", ErrProductNotFound, l.ProductID)
				}
				return err
			}
			ok, err := products.ReserveStock(ctx, p.ID, l.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w for %s", ErrInsufficientStock, p.Name)
			}
			item := model.OrderItem{
				ID:          uuid.NewString(),
				OrderID:     order.ID,
				ProductID:   p.ID,
				ProductName: p.Name,
				UnitPrice:   p.Price,
				Quantity:    l.Quantity,
			}
			subtotal = subtotal.Add(item.LineTotal())
			items = append(items, item)
		}

		discount := decimal.Zero
		if code != "" {
			c, err := applyCoupon(ctx, repository.NewCouponRepository(tx), code, now)
			if err != nil {
				return err
			}
			discount = subtotal.Mul(decimal.NewFromInt(int64(c.DiscountPercent))).Div(decimal.NewFromInt(100)).Round(2)
		}

		order.Items = items
		order.Subtotal = subtotal
		order.Discount = discount
		order.TotalPrice = subtotal.Sub(discount)
		order.StatusHistory = []model.StatusEntry{{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			Status:    model.OrderStatusPendingPayment,
			Comment:   defaultComments[model.OrderStatusPendingPayment],
			ActorID:   in.UserID,
			CreatedAt: now,
		}}
		if err := repository.NewOrderRepository(tx).Create(ctx, order); err != nil {
			return err
		}
		return emitOrderEvent(ctx, repository.NewOutboxRepository(tx), OrderEvent{
			Type:       model.EventOrderCreated,
			OrderID:    order.ID,
			UserID:     order.UserID,
			Status:     order.Status,
			TotalPrice: order.TotalPrice,
			ActorID:    in.UserID,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.total", order.TotalPrice.StringFixed(2)))
	logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("total", order.TotalPrice.StringFixed(2)),
		zap.Int("items", len(order.Items)))

	if s.notifier != nil {
		s.notifier.OrderPlaced(order)
	}
	if s.catalog != nil {
		ids := make([]string, len(order.Items))
		for i, it := range order.Items {
			ids[i] = it.ProductID
		}
		s.catalog.Invalidate(ctx, ids...)
	}

	res := &CreateOrderResult{Order: order}
	if order.ReceiptImage != "" {
		return res, nil
	}

	payer, err := s.users.GetByID(ctx, order.UserID)
	if err != nil {
		payer = nil
	}
	url, err := s.payments.Initialize(ctx, order, payer)
	if err != nil {
		s.rollbackUnpaid(ctx, order)
		return nil, err
	}
	res.PaymentURL = url
	return res, nil
}

// rollbackUnpaid 网关发起失败：取消订单（归还库存）并退回优惠券次数
func (s *orderService) rollbackUnpaid(ctx context.Context, order *model.Order) {
	// 请求上下文可能已超时，补偿使用独立的期限
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if _, err := s.engine.Transition(ctx, TransitionRequest{
		OrderID: order.ID,
		To:      model.OrderStatusCancelled,
		Comment: "Payment initialization failed",
		From:    []model.OrderStatus{model.OrderStatusPendingPayment},
	}); err != nil {
		logger.Error("cancel order after payment failure", zap.String("order_id", order.ID), zap.Error(err))
		return
	}
	if order.CouponCode != "" {
		if err := s.coupons.Release(ctx, order.CouponCode); err != nil {
			logger.Error("release coupon after payment failure",
				zap.String("order_id", order.ID), zap.String("coupon", order.CouponCode), zap.Error(err))
		}
	}
}

func (s *orderService) Get(ctx context.Context, requester *model.User, id string) (*model.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if requester == nil || (!requester.IsAdmin() && order.UserID != requester.ID) {
		return nil, ErrForbidden
	}
	return order, nil
}

func (s *orderService) ListMine(ctx context.Context, userID string) ([]*model.Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

func (s *orderService) ListAll(ctx context.Context, filter repository.OrderFilter) ([]*model.Order, int64, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	return s.orders.List(ctx, filter)
}

// mergeLines 合并重复商品，保持首次出现的顺序
func mergeLines(lines []CartLine) []CartLine {
	idx := make(map[string]int, len(lines))
	merged := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged
}
