package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/pkg/token"
)

func TestRegisterLoginAuthenticate(t *testing.T) {
	db := setupDB(t)
	users := repository.NewUserRepository(db)
	auth := NewAuthService(users, token.NewManager("test-secret", time.Hour))
	admin := NewUserService(users, repository.NewProductRepository(db), repository.NewOrderRepository(db))
	ctx := context.Background()

	res, err := auth.Register(ctx, RegisterInput{FullName: "Sara Tesfaye", Username: "sara", Email: "Sara@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "sara@example.com", res.User.Email)
	assert.NotEqual(t, "secret1", res.User.Password)

	_, err = auth.Register(ctx, RegisterInput{FullName: "Other", Username: "sara", Email: "other@example.com", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserExists)
	_, err = auth.Register(ctx, RegisterInput{FullName: "Bad", Username: "b", Email: "bad", Password: "1"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = auth.Login(ctx, "sara@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	login, err := auth.Login(ctx, " SARA@example.com ", "secret1")
	require.NoError(t, err)

	me, err := auth.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, me.ID)

	_, err = auth.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, token.ErrInvalidToken)

	suspended, err := admin.ToggleSuspension(ctx, me.ID, "chargeback")
	require.NoError(t, err)
	assert.True(t, suspended.IsSuspended)

	_, err = auth.Login(ctx, "sara@example.com", "secret1")
	assert.ErrorIs(t, err, ErrAccountSuspended)
	assert.Contains(t, err.Error(), "chargeback")
	_, err = auth.Authenticate(ctx, login.Token)
	assert.ErrorIs(t, err, ErrAccountSuspended)

	restored, err := admin.ToggleSuspension(ctx, me.ID, "")
	require.NoError(t, err)
	assert.False(t, restored.IsSuspended)
	assert.Empty(t, restored.SuspensionReason)
}

func TestUpdateProfile(t *testing.T) {
	db := setupDB(t)
	users := repository.NewUserRepository(db)
	auth := NewAuthService(users, token.NewManager("k", time.Hour))
	ctx := context.Background()
	u := seedUser(t, db, model.RoleUser)
	a := seedUser(t, db, model.RoleAdmin)

	got, err := auth.UpdateProfile(ctx, u.ID, ProfileInput{FullName: ptr("New Name")})
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.FullName)

	_, err = auth.UpdateProfile(ctx, u.ID, ProfileInput{AccountNumber: ptr("1000123")})
	assert.ErrorIs(t, err, ErrForbidden)

	got, err = auth.UpdateProfile(ctx, a.ID, ProfileInput{AccountNumber: ptr("1000123")})
	require.NoError(t, err)
	assert.Equal(t, "1000123", got.AccountNumber)
}

func TestAdminCannotBeSuspendedAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	users := NewUserService(repository.NewUserRepository(f.db), repository.NewProductRepository(f.db), repository.NewOrderRepository(f.db))
	u := seedUser(t, f.db, model.RoleUser)
	admin := seedUser(t, f.db, model.RoleAdmin)

	_, err := users.ToggleSuspension(ctx, admin.ID, "nope")
	assert.ErrorIs(t, err, ErrCannotSuspendAdmin)
	_, err = users.ToggleSuspension(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrUserNotFound)

	p := seedProduct(t, f.db, 10, "25")
	paid := placeOrder(t, f, u, CartLine{ProductID: p.ID, Quantity: 2})
	placeOrder(t, f, u, CartLine{ProductID: p.ID, Quantity: 1})
	_, err = f.status.UpdateStatus(ctx, admin.ID, paid.ID, model.OrderStatusVerified, "")
	require.NoError(t, err)

	st, err := users.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, st.Users)
	assert.EqualValues(t, 1, st.Products)
	assert.EqualValues(t, 2, st.Orders)
	assert.Equal(t, "50.00", st.Revenue.StringFixed(2))

	receipts, err := users.Receipts(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, receipts, 2)
}

func TestAuditRecordIsBestEffort(t *testing.T) {
	db := setupDB(t)
	svc := NewAuditService(repository.NewAuditRepository(db))
	ctx := context.Background()
	admin := seedUser(t, db, model.RoleAdmin)

	svc.Record(ctx, AuditEntry{AdminID: admin.ID, Action: model.AuditDeleteProduct, Target: "p1", Details: map[string]any{"force": true}, IP: "10.0.0.1"})
	svc.Record(ctx, AuditEntry{AdminID: admin.ID, Action: model.AuditCreateCoupon, Details: func() {}})

	logs, err := svc.ListRecent(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	assert.NotPanics(t, func() {
		svc.Record(ctx, AuditEntry{AdminID: admin.ID, Action: model.AuditDeleteComment})
	})
}
