package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/payment"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/pkg/logger"
)

// PaymentOptions 支付发起参数
type PaymentOptions struct {
	Currency  string
	StoreName string
	ClientURL string
}

// PaymentService 支付网关发起与核验
type PaymentService interface {
	// Initialize 为订单生成交易号并向网关申请收银台地址
	Initialize(ctx context.Context, order *model.Order, payer *model.User) (string, error)
	// Verify 向网关核验订单付款结果，成功则推进为 verified
	Verify(ctx context.Context, orderID string) (*model.Order, error)
}

type paymentService struct {
	orders  repository.OrderRepository
	gateway payment.Gateway
	engine  TransitionEngine
	opts    PaymentOptions
}

func NewPaymentService(orders repository.OrderRepository, gateway payment.Gateway, engine TransitionEngine, opts PaymentOptions) PaymentService {
	if opts.Currency == "" {
		opts.Currency = "ETB"
	}
	return &paymentService{orders: orders, gateway: gateway, engine: engine, opts: opts}
}

func (s *paymentService) Initialize(ctx context.Context, order *model.Order, payer *model.User) (string, error) {
	ctx, span := tracer.Start(ctx, "payment.initialize")
	defer span.End()

	txRef := payment.NewTxRef(order.ID)
	if err := s.orders.SetPaymentRef(ctx, order.ID, txRef); err != nil {
		return "", err
	}
	order.PaymentRef = txRef

	first, last := model.SplitName(order.DeliveryInfo.Name)
	req := payment.CheckoutRequest{
		OrderID:     order.ID,
		TxRef:       txRef,
		Amount:      order.TotalPrice,
		Currency:    s.opts.Currency,
		Email:       order.DeliveryInfo.Email,
		FirstName:   first,
		LastName:    last,
		CallbackURL: s.returnURL(order.ID),
		ReturnURL:   s.returnURL(order.ID),
		Title:       s.opts.StoreName,
		Description: fmt.Sprintf("Payment for order %s", order.ID),
	}
	if payer != nil {
		req.Email = payer.Email
		req.FirstName = payer.FirstName()
		req.LastName = payer.LastName()
	}

	co, err := s.gateway.Initialize(ctx, req)
	if err != nil {
		logger.Error("payment initialization failed",
			zap.String("order_id", order.ID),
			zap.String("gateway", s.gateway.Name()),
			zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}
	if co.Reference != "" && co.Reference != txRef {
		if err := s.orders.SetPaymentRef(ctx, order.ID, co.Reference); err != nil {
			return "", err
		}
		order.PaymentRef = co.Reference
	}
	return co.CheckoutURL, nil
}

func (s *paymentService) Verify(ctx context.Context, orderID string) (*model.Order, error) {
	ctx, span := tracer.Start(ctx, "payment.verify")
	defer span.End()

	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, notFound(err, ErrOrderNotFound)
	}
	if order.Status != model.OrderStatusPendingPayment {
		return order, nil
	}
	if order.PaymentRef == "" {
		return nil, ErrNoPaymentRef
	}

	v, err := s.gateway.Verify(ctx, order.PaymentRef)
	if err != nil {
		logger.Error("payment verification failed",
			zap.String("order_id", order.ID),
			zap.String("tx_ref", order.PaymentRef),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrPaymentGateway, err)
	}
	if !v.Paid {
		return nil, ErrPaymentNotSuccessful
	}

	updated, err := s.engine.Transition(ctx, TransitionRequest{
		OrderID: order.ID,
		To:      model.OrderStatusVerified,
		Comment: "Payment verified via " + s.gateway.Name(),
		From:    []model.OrderStatus{model.OrderStatusPendingPayment},
	})
	if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrConcurrentModification) {
		// 并发核验或管理员已处理，返回当前状态
		return s.orders.GetByID(ctx, order.ID)
	}
	return updated, err
}

func (s *paymentService) returnURL(orderID string) string {
	return fmt.Sprintf("%s/payment/success/%s", strings.TrimRight(s.opts.ClientURL, "/"), orderID)
}
