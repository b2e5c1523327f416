package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/d60-Lab/storefront/internal/model"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrate(db))
	return db
}

func seedUser(t *testing.T, db *gorm.DB) *model.User {
	t.Helper()
	id := uuid.NewString()
	u := &model.User{ID: id, FullName: "Test User", Username: "u" + id[:8], Email: id[:8] + "@example.com", Password: "x", Role: model.RoleUser}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedProduct(t *testing.T, db *gorm.DB, stock int) *model.Product {
	t.Helper()
	p := &model.Product{ID: uuid.NewString(), Name: "Phone", Category: model.CategoryElectronics, Price: decimal.NewFromInt(100), Stock: stock}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestProductStockReserveAndRelease(t *testing.T) {
	db := setupDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, 3)

	ok, err := repo.ReserveStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ReserveStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.False(t, ok, "only one unit left")

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stock)

	// soft deleted products still get their stock back but cannot be reserved
	removed, err := repo.SoftDelete(ctx, p.ID, model.ActiveStatuses())
	require.NoError(t, err)
	require.True(t, removed)
	require.NoError(t, repo.ReleaseStock(ctx, p.ID, 2))
	ok, err = repo.ReserveStock(ctx, p.ID, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var raw model.Product
	require.NoError(t, db.Unscoped().First(&raw, "id = ?", p.ID).Error)
	assert.Equal(t, 3, raw.Stock)
}

func TestProductUpdateWritesOnlyChangedColumns(t *testing.T) {
	db := setupDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, 10)

	ok, err := repo.ReserveStock(ctx, p.ID, 3)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, repo.Update(ctx, p.ID, map[string]interface{}{"name": "Tablet"}))
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tablet", got.Name)
	assert.Equal(t, 7, got.Stock)

	assert.ErrorIs(t, repo.Update(ctx, "missing", map[string]interface{}{"name": "x"}), gorm.ErrRecordNotFound)
}

func TestProductDeleteKeepsReferencedRows(t *testing.T) {
	db := setupDB(t)
	repo := NewProductRepository(db)
	orders := NewOrderRepository(db)
	ctx := context.Background()
	u := seedUser(t, db)
	p := seedProduct(t, db, 5)

	orderID := uuid.NewString()
	require.NoError(t, orders.Create(ctx, &model.Order{
		ID:         orderID,
		UserID:     u.ID,
		Subtotal:   decimal.NewFromInt(100),
		TotalPrice: decimal.NewFromInt(100),
		Status:     model.OrderStatusPending,
		Items: []model.OrderItem{
			{ID: uuid.NewString(), ProductID: p.ID, ProductName: p.Name, UnitPrice: p.Price, Quantity: 1},
		},
	}))

	removed, err := repo.HardDelete(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, removed, "ordered products are never removed physically")

	removed, err = repo.SoftDelete(ctx, p.ID, model.ActiveStatuses())
	require.NoError(t, err)
	assert.False(t, removed, "active orders block soft deletion")

	require.NoError(t, db.Model(&model.Order{}).Where("id = ?", orderID).Update("status", model.OrderStatusDelivered).Error)
	removed, err = repo.SoftDelete(ctx, p.ID, model.ActiveStatuses())
	require.NoError(t, err)
	assert.True(t, removed)

	var cnt int64
	require.NoError(t, db.Unscoped().Model(&model.Product{}).Where("id = ?", p.ID).Count(&cnt).Error)
	assert.Equal(t, int64(1), cnt)

	_, err = repo.HardDelete(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductListByCategory(t *testing.T) {
	db := setupDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()

	seedProduct(t, db, 1)
	book := &model.Product{ID: uuid.NewString(), Name: "Go book", Category: model.CategoryBooks, Price: decimal.NewFromInt(20), Stock: 5}
	require.NoError(t, repo.Create(ctx, book))

	all, err := repo.List(ctx, model.CategoryAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	books, err := repo.List(ctx, model.CategoryBooks)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Go book", books[0].Name)
	assert.True(t, decimal.NewFromInt(20).Equal(books[0].Price))
}

func TestCouponConsumeUse(t *testing.T) {
	db := setupDB(t)
	repo := NewCouponRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	c := &model.Coupon{ID: uuid.NewString(), Code: "SAVE50", DiscountPercent: 50, RemainingUses: 1, ExpiryDate: now.Add(time.Hour), IsActive: true}
	require.NoError(t, repo.Create(ctx, c))

	ok, err := repo.ConsumeUse(ctx, c.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ConsumeUse(ctx, c.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repo.GetByCode(ctx, "SAVE50")
	require.NoError(t, err)
	assert.Equal(t, 0, got.RemainingUses)

	require.NoError(t, repo.ReleaseUse(ctx, "SAVE50"))
	ok, err = repo.ConsumeUse(ctx, c.ID, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "expired coupons are never consumed")
}

func TestOrderQueries(t *testing.T) {
	db := setupDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	u := seedUser(t, db)
	p := seedProduct(t, db, 10)

	orderID := uuid.NewString()
	order := &model.Order{
		ID:         orderID,
		UserID:     u.ID,
		Subtotal:   decimal.NewFromInt(200),
		TotalPrice: decimal.NewFromInt(200),
		Status:     model.OrderStatusPendingPayment,
		Items: []model.OrderItem{
			{ID: uuid.NewString(), ProductID: p.ID, ProductName: p.Name, UnitPrice: p.Price, Quantity: 2},
		},
		StatusHistory: []model.StatusEntry{
			{ID: uuid.NewString(), Status: model.OrderStatusPendingPayment, Comment: "placed"},
		},
		ReceiptImage: "r.png",
	}
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.GetByID(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	require.Len(t, got.StatusHistory, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	ok, err := repo.HasPurchased(ctx, u.ID, p.ID, model.ReviewableStatuses())
	require.NoError(t, err)
	assert.False(t, ok)

	swapped, err := repo.CompareAndSetStatus(ctx, orderID, model.OrderStatusPendingPayment, model.OrderStatusVerified, nil)
	require.NoError(t, err)
	assert.True(t, swapped)

	swapped, err = repo.CompareAndSetStatus(ctx, orderID, model.OrderStatusPendingPayment, model.OrderStatusCancelled, nil)
	require.NoError(t, err)
	assert.False(t, swapped, "stale source status must not match")

	ok, err = repo.HasPurchased(ctx, u.ID, p.ID, model.ReviewableStatuses())
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := repo.CountByProduct(ctx, p.ID, model.ActiveStatuses())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	receipts, err := repo.ReceiptsByUser(ctx, u.ID, model.ReviewableStatuses())
	require.NoError(t, err)
	assert.Equal(t, []string{"r.png"}, receipts)

	revenue, err := repo.Revenue(ctx, model.ReviewableStatuses())
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(revenue), revenue.String())

	list, total, err := repo.List(ctx, OrderFilter{Status: model.OrderStatusVerified})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].User)
	assert.Equal(t, u.Email, list[0].User.Email)
}

func TestOutboxClaimIsExclusive(t *testing.T) {
	db := setupDB(t)
	repo := NewOutboxRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Emit(ctx, &model.OutboxEvent{ID: uuid.NewString(), AggregateID: "o1", EventType: model.EventOrderCreated, Payload: []byte(`{}`)}))
	}

	first, err := repo.Claim(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := repo.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, second, 1)

	require.NoError(t, repo.MarkRetry(ctx, second[0].ID, 1, 3))
	again, err := repo.Claim(ctx, 10)
	require.NoError(t, err)
	require.Len(t, again, 1)

	require.NoError(t, repo.MarkRetry(ctx, again[0].ID, 3, 3))
	none, err := repo.Claim(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, repo.MarkDone(ctx, first[0].ID))
	var done model.OutboxEvent
	require.NoError(t, db.First(&done, "id = ?", first[0].ID).Error)
	assert.Equal(t, model.OutboxDone, done.Status)
	assert.NotNil(t, done.ProcessedAt)

	n, err := repo.Purge(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "recently processed events are kept")
	n, err = repo.Purge(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
