package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/config"
	"github.com/d60-Lab/storefront/pkg/logger"
)

var (
	// ErrGatewayUnavailable covers timeouts, transport failures and an open circuit.
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
	// ErrRejected means the gateway answered but refused the request.
	ErrRejected = errors.New("payment: request rejected by gateway")
)

// CheckoutRequest carries everything a provider needs to open a hosted checkout.
type CheckoutRequest struct {
	OrderID     string
	TxRef       string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	CallbackURL string
	ReturnURL   string
	Title       string
	Description string
}

// Checkout is the provider answer to Initialize. Reference is what Verify expects later;
// providers that mint their own ids return them here, others echo TxRef.
type Checkout struct {
	Reference   string
	CheckoutURL string
}

// Verification is the normalised verify result. Paid=false with a nil error means the
// gateway knows the transaction but it is not settled.
type Verification struct {
	Reference string
	Paid      bool
	Status    string
}

// Gateway is the contract every payment provider implements.
type Gateway interface {
	Name() string
	Initialize(ctx context.Context, req CheckoutRequest) (Checkout, error)
	Verify(ctx context.Context, reference string) (Verification, error)
}

// NewTxRef builds a unique, sortable transaction reference for an order.
func NewTxRef(orderID string) string {
	return fmt.Sprintf("tx-%s-%s", orderID, strings.ToLower(ulid.Make().String()))
}

// New selects the provider from config and wraps it with timeout + circuit breaker.
func New(cfg config.PaymentConfig) (Gateway, error) {
	var gw Gateway
	switch cfg.Mode {
	case "mock":
		logger.Warn("payment gateway running in mock mode, every payment succeeds")
		gw = NewMock()
	case "chapa":
		gw = NewChapa(cfg.BaseURL, cfg.SecretKey, nil)
	case "stripe":
		s, err := NewStripe(cfg.SecretKey)
		if err != nil {
			return nil, err
		}
		gw = s
	default:
		return nil, fmt.Errorf("payment: unknown mode %q", cfg.Mode)
	}
	logger.Info("payment gateway ready", zap.String("provider", gw.Name()))
	return WithBreaker(gw, BreakerOptions{
		Timeout:     cfg.Timeout,
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
	}), nil
}
