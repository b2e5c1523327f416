package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// checkoutSessions is the subset of the stripe checkout session client in use.
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// Stripe opens hosted checkout sessions. The session id becomes the payment reference.
type Stripe struct {
	sessions checkoutSessions
}

func NewStripe(secretKey string) (*Stripe, error) {
	if secretKey == "" {
		return nil, errors.New("payment: stripe secret key is empty")
	}
	sc := client.New(secretKey, nil)
	return &Stripe{sessions: sc.CheckoutSessions}, nil
}

func (s *Stripe) Name() string { return "stripe" }

func (s *Stripe) Initialize(ctx context.Context, req CheckoutRequest) (Checkout, error) {
	title := req.Title
	if title == "" {
		title = "Order " + req.OrderID
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.ReturnURL),
		CancelURL:         stripe.String(req.CallbackURL),
		ClientReferenceID: stripe.String(req.TxRef),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(minorUnits(req.Amount)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(title),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"order_id": req.OrderID,
			"tx_ref":   req.TxRef,
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx

	sess, err := s.sessions.New(params)
	if err != nil {
		return Checkout{}, stripeErr(err)
	}
	return Checkout{Reference: sess.ID, CheckoutURL: sess.URL}, nil
}

func (s *Stripe) Verify(ctx context.Context, reference string) (Verification, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := s.sessions.Get(reference, params)
	if err != nil {
		return Verification{}, stripeErr(err)
	}
	return Verification{
		Reference: sess.ID,
		Paid:      sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
		Status:    string(sess.PaymentStatus),
	}, nil
}

func minorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func stripeErr(err error) error {
	var se *stripe.Error
	if errors.As(err, &se) && se.HTTPStatusCode >= http.StatusBadRequest && se.HTTPStatusCode < http.StatusInternalServerError {
		return fmt.Errorf("%w: stripe: %s", ErrRejected, se.Msg)
	}
	return fmt.Errorf("%w: stripe: %v", ErrGatewayUnavailable, err)
}
