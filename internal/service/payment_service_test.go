package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/payment"
)

func gatewayOrder(t *testing.T, f *fixture) (*model.Order, *model.Product) {
	t.Helper()
	u := seedUser(t, f.db, model.RoleUser)
	p := seedProduct(t, f.db, 10, "100")
	res, err := f.orders.Create(context.Background(), CreateOrderInput{
		UserID: u.ID, Lines: []CartLine{{ProductID: p.ID, Quantity: 1}}, Delivery: delivery(),
	})
	require.NoError(t, err)
	return res.Order, p
}

func TestVerifyPaymentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, _ := gatewayOrder(t, f)

	got, err := f.payments.Verify(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusVerified, got.Status)

	got, err = f.payments.Verify(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusVerified, got.Status)

	assert.Equal(t, 1, f.gateway.verifyCalls, "settled orders are not re-verified")
	assert.Len(t, historyOf(t, f.db, o.ID), 2)
	assert.Equal(t, []model.OrderStatus{model.OrderStatusVerified}, f.sink.changed)
}

func TestVerifyPaymentFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.payments.Verify(ctx, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	o, _ := gatewayOrder(t, f)
	f.gateway.unpaid = true
	_, err = f.payments.Verify(ctx, o.ID)
	assert.ErrorIs(t, err, ErrPaymentNotSuccessful)

	f.gateway.unpaid = false
	f.gateway.verifyErr = payment.ErrGatewayUnavailable
	_, err = f.payments.Verify(ctx, o.ID)
	assert.ErrorIs(t, err, ErrPaymentGateway)

	var stored model.Order
	require.NoError(t, f.db.First(&stored, "id = ?", o.ID).Error)
	assert.Equal(t, model.OrderStatusPendingPayment, stored.Status)
	assert.Len(t, historyOf(t, f.db, o.ID), 1)

	require.NoError(t, f.db.Model(&model.Order{}).Where("id = ?", o.ID).Update("payment_ref", "").Error)
	_, err = f.payments.Verify(ctx, o.ID)
	assert.ErrorIs(t, err, ErrNoPaymentRef)
}

func TestVerifyAfterCancelReportsCurrentStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	o, p := gatewayOrder(t, f)

	_, err := f.status.Cancel(ctx, o.UserID, o.ID)
	require.NoError(t, err)

	got, err := f.payments.Verify(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)
	assert.Equal(t, 0, f.gateway.verifyCalls)
	assert.Equal(t, 10, stockOf(t, f.db, p.ID))
}

func TestPaymentInitializeStoresProviderReference(t *testing.T) {
	f := newFixture(t)
	o, _ := gatewayOrder(t, f)

	var stored model.Order
	require.NoError(t, f.db.First(&stored, "id = ?", o.ID).Error)
	assert.Equal(t, f.gateway.lastReq.TxRef, stored.PaymentRef)
	assert.Contains(t, stored.PaymentRef, "tx-"+o.ID+"-")
	assert.Equal(t, "ETB", f.gateway.lastReq.Currency)
	assert.Equal(t, "100.00", f.gateway.lastReq.Amount.StringFixed(2))
}
