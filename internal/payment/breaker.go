package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/pkg/logger"
)

// BreakerOptions tunes the guard around a provider.
type BreakerOptions struct {
	Timeout     time.Duration
	MaxFailures uint32
	OpenTimeout time.Duration
}

type breakerGateway struct {
	next    Gateway
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker[any]
}

// WithBreaker bounds every call by opts.Timeout and trips after MaxFailures consecutive
// transport failures. Gateway rejections do not count as failures.
func WithBreaker(next Gateway, opts BreakerOptions) Gateway {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = 5
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}
	maxFailures := opts.MaxFailures
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "payment-" + next.Name(),
		Timeout: opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payment circuit state changed",
				zap.String("breaker", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	})
	return &breakerGateway{next: next, timeout: opts.Timeout, cb: cb}
}

func (g *breakerGateway) Name() string { return g.next.Name() }

func (g *breakerGateway) Initialize(ctx context.Context, req CheckoutRequest) (Checkout, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	res, err := g.cb.Execute(func() (any, error) {
		return g.next.Initialize(ctx, req)
	})
	if err != nil {
		return Checkout{}, translate(err)
	}
	return res.(Checkout), nil
}

func (g *breakerGateway) Verify(ctx context.Context, reference string) (Verification, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	res, err := g.cb.Execute(func() (any, error) {
		return g.next.Verify(ctx, reference)
	})
	if err != nil {
		return Verification{}, translate(err)
	}
	return res.(Verification), nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, ErrRejected), errors.Is(err, ErrGatewayUnavailable):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: circuit open", ErrGatewayUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: timeout", ErrGatewayUnavailable)
	default:
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
}
