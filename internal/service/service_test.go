package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/payment"
	"github.com/d60-Lab/storefront/internal/repository"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接保证事务串行
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repository.AutoMigrate(db))
	return db
}

type recordingSink struct {
	mu          sync.Mutex
	placed      []string
	changed     []model.OrderStatus
	comments    []string
	resubmitted []string
}

func (s *recordingSink) OrderPlaced(o *model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placed = append(s.placed, o.ID)
}

func (s *recordingSink) StatusChanged(_ *model.Order, status model.OrderStatus, comment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changed = append(s.changed, status)
	s.comments = append(s.comments, comment)
}

func (s *recordingSink) ReceiptResubmitted(o *model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resubmitted = append(s.resubmitted, o.ID)
}

type recordingCatalog struct {
	mu  sync.Mutex
	ids []string
}

func (c *recordingCatalog) Invalidate(_ context.Context, ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, ids...)
}

type stubGateway struct {
	mu          sync.Mutex
	initErr     error
	verifyErr   error
	unpaid      bool
	initCalls   int
	verifyCalls int
	lastReq     payment.CheckoutRequest
}

func (g *stubGateway) Name() string { return "stub" }

func (g *stubGateway) Initialize(_ context.Context, req payment.CheckoutRequest) (payment.Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.initCalls++
	g.lastReq = req
	if g.initErr != nil {
		return payment.Checkout{}, g.initErr
	}
	return payment.Checkout{Reference: req.TxRef, CheckoutURL: "https://pay.example/" + req.TxRef}, nil
}

func (g *stubGateway) Verify(_ context.Context, ref string) (payment.Verification, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return payment.Verification{}, g.verifyErr
	}
	return payment.Verification{Reference: ref, Paid: !g.unpaid}, nil
}

type fixture struct {
	db       *gorm.DB
	sink     *recordingSink
	catalog  *recordingCatalog
	gateway  *stubGateway
	engine   TransitionEngine
	orders   OrderService
	status   OrderStatusService
	payments PaymentService
	coupons  CouponService
	reviews  ReviewService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupDB(t)
	f := &fixture{db: db, sink: &recordingSink{}, catalog: &recordingCatalog{}, gateway: &stubGateway{}}
	orderRepo := repository.NewOrderRepository(db)
	f.engine = NewTransitionEngine(db, f.sink, f.catalog)
	f.coupons = NewCouponService(repository.NewCouponRepository(db))
	f.payments = NewPaymentService(orderRepo, f.gateway, f.engine, PaymentOptions{Currency: "ETB", ClientURL: "http://shop.test"})
	f.orders = NewOrderService(db, f.engine, f.payments, f.coupons, f.sink, f.catalog)
	f.status = NewOrderStatusService(f.engine, orderRepo)
	f.reviews = NewReviewService(repository.NewReviewRepository(db), orderRepo, repository.NewProductRepository(db))
	return f
}

func seedUser(t *testing.T, db *gorm.DB, role model.Role) *model.User {
	t.Helper()
	id := uuid.NewString()
	u := &model.User{ID: id, FullName: "Abebe Kebede", Username: "u" + id[:8], Email: id[:8] + "@example.com", Password: "x", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, stock int, price string) *model.Product {
	t.Helper()
	p := &model.Product{ID: uuid.NewString(), Name: "Widget " + price, Category: model.CategoryElectronics, Price: decimal.RequireFromString(price), Stock: stock}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedCoupon(t *testing.T, db *gorm.DB, code string, pct, uses int) *model.Coupon {
	t.Helper()
	c := &model.Coupon{ID: uuid.NewString(), Code: code, DiscountPercent: pct, RemainingUses: uses, ExpiryDate: time.Now().Add(24 * time.Hour), IsActive: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

func stockOf(t *testing.T, db *gorm.DB, id string) int {
	t.Helper()
	var p model.Product
	require.NoError(t, db.Unscoped().First(&p, "id = ?", id).Error)
	return p.Stock
}

func historyOf(t *testing.T, db *gorm.DB, orderID string) []model.StatusEntry {
	t.Helper()
	var h []model.StatusEntry
	require.NoError(t, db.Where("order_id = ?", orderID).Order("created_at ASC").Find(&h).Error)
	return h
}

func delivery() model.DeliveryInfo {
	return model.DeliveryInfo{Name: "Abebe Kebede", Phone: "+251911000000", Email: "abebe@example.com", Address: "Bole, Addis Ababa"}
}

// placeOrder 以凭证方式下单，不经过支付网关
func placeOrder(t *testing.T, f *fixture, user *model.User, lines ...CartLine) *model.Order {
	t.Helper()
	res, err := f.orders.Create(context.Background(), CreateOrderInput{
		UserID:       user.ID,
		Lines:        lines,
		Delivery:     delivery(),
		ReceiptImage: "uploads/receipts/r.png",
	})
	require.NoError(t, err)
	return res.Order
}

func tomorrow() time.Time  { return time.Now().UTC().Add(24 * time.Hour) }
func yesterday() time.Time { return time.Now().UTC().Add(-24 * time.Hour) }
