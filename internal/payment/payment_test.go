package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v78"
)

func TestChapaInitializeAndVerify(t *testing.T) {
	var got chapaInitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/transaction/initialize":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			_, _ = w.Write([]byte(`{"message":"Hosted Link","status":"success","data":{"checkout_url":"https://checkout.example/abc"}}`))
		case r.URL.Path == "/transaction/verify/tx-paid":
			_, _ = w.Write([]byte(`{"message":"ok","status":"success","data":{"status":"success"}}`))
		case r.URL.Path == "/transaction/verify/tx-open":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"Payment not paid yet","status":"failed","data":null}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewChapa(srv.URL, "sk_test", srv.Client())
	co, err := c.Initialize(context.Background(), CheckoutRequest{
		OrderID: "o1", TxRef: "tx-o1-1", Amount: decimal.RequireFromString("199.5"), Currency: "ETB",
		Email: "a@b.c", FirstName: "Abebe", LastName: "Kebede",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/abc", co.CheckoutURL)
	assert.Equal(t, "tx-o1-1", co.Reference)
	assert.Equal(t, "199.50", got.Amount)
	assert.Equal(t, "tx-o1-1", got.TxRef)

	v, err := c.Verify(context.Background(), "tx-paid")
	require.NoError(t, err)
	assert.True(t, v.Paid)

	v, err = c.Verify(context.Background(), "tx-open")
	require.NoError(t, err)
	assert.False(t, v.Paid)
}

func TestChapaErrorsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "initialize") {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"invalid currency","status":"failed"}`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewChapa(srv.URL, "sk", srv.Client())
	_, err := c.Initialize(context.Background(), CheckoutRequest{TxRef: "x", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrRejected)

	_, err = c.Verify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

type flakyGateway struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (f *flakyGateway) Name() string { return "flaky" }

func (f *flakyGateway) Initialize(ctx context.Context, req CheckoutRequest) (Checkout, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return Checkout{}, ctx.Err()
		}
	}
	if f.err != nil {
		return Checkout{}, f.err
	}
	return Checkout{Reference: req.TxRef, CheckoutURL: "u"}, nil
}

func (f *flakyGateway) Verify(_ context.Context, ref string) (Verification, error) {
	f.calls.Add(1)
	return Verification{Reference: ref}, f.err
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyGateway{err: errors.New("connection reset")}
	gw := WithBreaker(inner, BreakerOptions{Timeout: time.Second, MaxFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := gw.Initialize(context.Background(), CheckoutRequest{})
		assert.ErrorIs(t, err, ErrGatewayUnavailable)
	}
	_, err := gw.Verify(context.Background(), "r")
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Equal(t, int32(2), inner.calls.Load(), "open circuit must short-circuit")
}

func TestBreakerIgnoresRejections(t *testing.T) {
	inner := &flakyGateway{err: ErrRejected}
	gw := WithBreaker(inner, BreakerOptions{Timeout: time.Second, MaxFailures: 1, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := gw.Initialize(context.Background(), CheckoutRequest{})
		assert.ErrorIs(t, err, ErrRejected)
	}
	assert.Equal(t, int32(3), inner.calls.Load())
}

func TestBreakerTimeout(t *testing.T) {
	inner := &flakyGateway{delay: time.Second}
	gw := WithBreaker(inner, BreakerOptions{Timeout: 20 * time.Millisecond, MaxFailures: 5})

	start := time.Now()
	_, err := gw.Initialize(context.Background(), CheckoutRequest{})
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

type fakeSessions struct {
	created *stripe.CheckoutSessionParams
	status  stripe.CheckoutSessionPaymentStatus
	err     error
}

func (f *fakeSessions) New(p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = p
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://stripe.example/cs_test_1"}, nil
}

func (f *fakeSessions) Get(id string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: id, PaymentStatus: f.status}, nil
}

func TestStripeSessions(t *testing.T) {
	fs := &fakeSessions{status: stripe.CheckoutSessionPaymentStatusPaid}
	s := &Stripe{sessions: fs}

	co, err := s.Initialize(context.Background(), CheckoutRequest{
		OrderID: "o1", TxRef: "tx-o1", Amount: decimal.RequireFromString("12.34"), Currency: "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", co.Reference)
	assert.Equal(t, int64(1234), *fs.created.LineItems[0].PriceData.UnitAmount)
	assert.Equal(t, "usd", *fs.created.LineItems[0].PriceData.Currency)
	assert.Equal(t, "tx-o1", *fs.created.ClientReferenceID)

	v, err := s.Verify(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.True(t, v.Paid)

	fs.status = stripe.CheckoutSessionPaymentStatusUnpaid
	v, err = s.Verify(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.False(t, v.Paid)

	fs.err = &stripe.Error{HTTPStatusCode: http.StatusBadRequest, Msg: "bad"}
	_, err = s.Verify(context.Background(), "cs_test_1")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestNewTxRefUnique(t *testing.T) {
	a, b := NewTxRef("o1"), NewTxRef("o1")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "tx-o1-"))
}
