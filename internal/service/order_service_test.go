package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/payment"
	"github.com/d60-Lab/storefront/internal/repository"
)

func TestCreateOrderWithGatewayPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := seedUser(t, f.db, model.RoleUser)
	p := seedProduct(t, f.db, 10, "100")

	res, err := f.orders.Create(ctx, CreateOrderInput{
		UserID:   u.ID,
		Lines:    []CartLine{{ProductID: p.ID, Quantity: 2}},
		Delivery: delivery(),
	})
	require.NoError(t, err)

	o := res.Order
	assert.Equal(t, "200.00", o.TotalPrice.StringFixed(2))
	assert.Equal(t, model.OrderStatusPendingPayment, o.Status)
	assert.Equal(t, 8, stockOf(t, f.db, p.ID))
	require.Len(t, o.Items, 1)
	assert.Equal(t, p.Name, o.Items[0].ProductName)

	assert.NotEmpty(t, res.PaymentURL)
	assert.Equal(t, 1, f.gateway.initCalls)
	assert.Equal(t, "http://shop.test/payment/success/"+o.ID, f.gateway.lastReq.CallbackURL)
	assert.Equal(t, u.Email, f.gateway.lastReq.Email)

	stored, err := repository.NewOrderRepository(f.db).GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PaymentRef)
	assert.Len(t, stored.StatusHistory, 1)
	assert.Equal(t, []string{o.ID}, f.sink.placed)

	var events []model.OutboxEvent
	require.NoError(t, f.db.Where("aggregate_id = ?", o.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, model.EventOrderCreated, events[0].EventType)
}

func TestCreateOrderWithReceiptSkipsGateway(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f.db, model.RoleUser)
	p := seedProduct(t, f.db, 5, "19.99")

	o := placeOrder(t, f, u, CartLine{ProductID: p.ID, Quantity: 1}, CartLine{ProductID: p.ID, Quantity: 2})

	assert.Equal(t, 0, f.gateway.initCalls)
	require.Len(t, o.Items, 1, "duplicate lines are merged")
	assert.Equal(t, 3, o.Items[0].Quantity)
	assert.Equal(t, "59.97", o.TotalPrice.StringFixed(2))
	assert.Equal(t, 2, stockOf(t, f.db, p.ID))
}

func TestCreateOrderRejectsWholeCartOnInsufficientStock(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f.db, model.RoleUser)
	a := seedProduct(t, f.db, 5, "10")
	b := seedProduct(t, f.db, 1, "20")

	_, err := f.orders.Create(context.Background(), CreateOrderInput{
		UserID:       u.ID,
		Lines:        []CartLine{{ProductID: a.ID, Quantity: 2}, {ProductID: b.ID, Quantity: 3}},
		Delivery:     delivery(),
		ReceiptImage: "r.png",
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, stockOf(t, f.db, a.ID), "no partial reservation")
	assert.Equal(t, 1, stockOf(t, f.db, b.ID))

	var cnt int64
	require.NoError(t, f.db.Model(&model.Order{}).Count(&cnt).Error)
	assert.Zero(t, cnt)
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f.db, model.RoleUser)
	p := seedProduct(t, f.db, 5, "10")
	ctx := context.Background()

	_, err := f.orders.Create(ctx, CreateOrderInput{UserID: u.ID, Delivery: delivery()})
	assert.ErrorIs(t, err, ErrInvalidInput, "empty cart")

	_, err = f.orders.Create(ctx, CreateOrderInput{UserID: u.ID, Lines: []CartLine{{ProductID: p.ID, Quantity: 0}}, Delivery: delivery()})
	assert.ErrorIs(t, err, ErrInvalidInput, "zero quantity")

	bad := delivery()
	bad.Email = "not-an-email"
	_, err = f.orders.Create(ctx, CreateOrderInput{UserID: u.ID, Lines: []CartLine{{ProductID: p.ID, Quantity: 1}}, Delivery: bad})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.orders.Create(ctx, CreateOrderInput{UserID: u.ID, Lines: []CartLine{{ProductID: "missing", Quantity: 1}}, Delivery: delivery()})
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.Equal(t, 5, stockOf(t, f.db, p.ID))
}

func TestCreateOrderAppliesCoupon(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f.db, model.RoleUser)
	p := seedProduct(t, f.db, 10, "100")
	c := seedCoupon(t, f.db, "SAVE50", 50, 1)

	res, err := f.orders.Create(context.Background(), CreateOrderInput{
		UserID:       u.ID,
		Lines:        []CartLine{{ProductID: p.ID, Quantity: 1}},
		Delivery:     delivery(),
		CouponCode:   " save50 ",
		ReceiptImage: "r.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "100.00", res.Order.Subtotal.StringFixed(2))
	assert.Equal(t, "50.00", res.Order.Discount.StringFixed(2))
	assert.Equal(t, "50.00", res.Order.TotalPrice.StringFixed(2))
	assert.Equal(t, "SAVE50", res.Order.CouponCode)

	var got model.Coupon
	require.NoError(t, f.db.First(&got, "id = ?", c.ID).Error)
	assert.Equal(t, 0, got.RemainingUses)
}

func TestCreateOrderDiscountRounding(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f.db, model.RoleUser)
	p := seedProduct(t, f.db, 10, "33.33")
	seedCoupon(t, f.db, "TEN", 15, 5)

	res, err := f.orders.Create(context.Background(), CreateOrderInput{
		UserID: u.ID, Lines: []CartLine{{ProductID: p.ID, Quantity: 1}}, Delivery: delivery(),
		CouponCode: "TEN", ReceiptImage: "r.png",
	})
	require.NoError(t, err)
	o := res.Order
	// 33.33 * 15% = 4.9995 -> 5.00
	assert.Equal(t, "5.00", o.Discount.StringFixed(2))
	assert.True(t, o.TotalPrice.Equal(o.Subtotal.Sub(o.Discount)))
}

func TestCreateOrderCouponFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f.db, model.RoleUser)
	p := seedProduct(t, f.db, 10, "100")
	seedCoupon(t, f.db, "USED", 10, 0)

	_, err := f.orders.Create(context.Background(), CreateOrderInput{
		UserID: u.ID, Lines: []CartLine{{ProductID: p.ID, Quantity: 3}}, Delivery: delivery(),
		CouponCode: "USED", ReceiptImage: "r.png",
	})
	assert.ErrorIs(t, err, ErrCouponExhausted)
	assert.Equal(t, 10, stockOf(t, f.db, p.ID))

	_, err = f.orders.Create(context.Background(), CreateOrderInput{
		UserID: u.ID, Lines: []CartLine{{ProductID: p.ID, Quantity: 3}}, Delivery: delivery(),
		CouponCode: "NOPE", ReceiptImage: "r.png",
	})
	assert.ErrorIs(t, err, ErrCouponNotFound)
	assert.Equal(t, 10, stockOf(t, f.db, p.ID))
}

func TestConcurrentOrdersShareLastCouponUse(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f.db, model.RoleUser)
	p := seedProduct(t, f.db, 10, "100")
	c := seedCoupon(t, f.db, "LAST", 20, 1)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		exhausted int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.Create(context.Background(), CreateOrderInput{
				UserID: u.ID, Lines: []CartLine{{ProductID: p.ID, Quantity: 1}}, Delivery: delivery(),
				CouponCode: "LAST", ReceiptImage: "r.png",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrCouponExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, exhausted)
	var got model.Coupon
	require.NoError(t, f.db.First(&got, "id = ?", c.ID).Error)
	assert.Equal(t, 0, got.RemainingUses)
	assert.Equal(t, 9, stockOf(t, f.db, p.ID))
}

func TestGatewayFailureCancelsAndRestores(t *testing.T) {
	f := newFixture(t)
	u := seedUser(t, f.db, model.RoleUser)
	p := seedProduct(t, f.db, 10, "100")
	c := seedCoupon(t, f.db, "HALF", 50, 1)
	f.gateway.initErr = payment.ErrGatewayUnavailable

	_, err := f.orders.Create(context.Background(), CreateOrderInput{
		UserID: u.ID, Lines: []CartLine{{ProductID: p.ID, Quantity: 4}}, Delivery: delivery(), CouponCode: "HALF",
	})
	assert.ErrorIs(t, err, ErrPaymentInit)
	assert.Equal(t, 10, stockOf(t, f.db, p.ID))

	var got model.Coupon
	require.NoError(t, f.db.First(&got, "id = ?", c.ID).Error)
	assert.Equal(t, 1, got.RemainingUses)

	var o model.Order
	require.NoError(t, f.db.First(&o, "user_id = ?", u.ID).Error)
	assert.Equal(t, model.OrderStatusCancelled, o.Status)
	assert.Len(t, historyOf(t, f.db, o.ID), 2)
}

func TestOrderVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := seedUser(t, f.db, model.RoleUser)
	other := seedUser(t, f.db, model.RoleUser)
	admin := seedUser(t, f.db, model.RoleAdmin)
	p := seedProduct(t, f.db, 10, "5")
	o := placeOrder(t, f, owner, CartLine{ProductID: p.ID, Quantity: 1})

	_, err := f.orders.Get(ctx, owner, o.ID)
	assert.NoError(t, err)
	_, err = f.orders.Get(ctx, admin, o.ID)
	assert.NoError(t, err)
	_, err = f.orders.Get(ctx, other, o.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.orders.Get(ctx, admin, "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	mine, err := f.orders.ListMine(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, total, err := f.orders.ListAll(ctx, repository.OrderFilter{Status: model.OrderStatusPendingPayment})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Len(t, all, 1)

	_, _, err = f.orders.ListAll(ctx, repository.OrderFilter{Status: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
