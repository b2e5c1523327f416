package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
)

// OrderFilter 管理端订单查询条件
type OrderFilter struct {
	Status   model.OrderStatus
	UserID   string
	Page     int
	PageSize int
}

// OrderRepository 订单仓储接口
type OrderRepository interface {
	// Create 创建订单（连同订单行与首条状态历史）
	Create(ctx context.Context, order *model.Order) error

	// GetByID 根据订单ID查询订单，预加载订单行与状态历史
	GetByID(ctx context.Context, id string) (*model.Order, error)

	// ListByUser 查询用户的订单，最新在前
	ListByUser(ctx context.Context, userID string) ([]*model.Order, error)

	// List 分页查询订单
	List(ctx context.Context, filter OrderFilter) ([]*model.Order, int64, error)

	// CompareAndSetStatus 仅当当前状态为 from 时更新为 to，返回是否命中
	CompareAndSetStatus(ctx context.Context, id string, from, to model.OrderStatus, extra map[string]any) (bool, error)

	// SetPaymentRef 记录支付网关交易号
	SetPaymentRef(ctx context.Context, id, ref string) error

	// AppendHistory 追加状态历史
	AppendHistory(ctx context.Context, entry *model.StatusEntry) error

	// HasPurchased 用户是否有包含该商品且状态在 statuses 中的订单
	HasPurchased(ctx context.Context, userID, productID string, statuses []model.OrderStatus) (bool, error)

	// CountByProduct 统计引用该商品的订单数（statuses 为空表示不限状态）
	CountByProduct(ctx context.Context, productID string, statuses []model.OrderStatus) (int64, error)

	// ReceiptsByUser 用户订单中的付款凭证
	ReceiptsByUser(ctx context.Context, userID string, statuses []model.OrderStatus) ([]string, error)

	// ListStale 查询早于 before 且处于 status 的订单
	ListStale(ctx context.Context, status model.OrderStatus, before time.Time, limit int) ([]*model.Order, error)

	// Count 统计订单数量
	Count(ctx context.Context) (int64, error)

	// Revenue 统计指定状态订单的总金额
	Revenue(ctx context.Context, statuses []model.OrderStatus) (decimal.Decimal, error)
}

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储；传入事务句柄即可在事务内使用
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListByUser(ctx context.Context, userID string) ([]*model.Order, error) {
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]*model.Order, int64, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	q := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var orders []*model.Order
	err := q.Preload("Items").
		Preload("User", func(db *gorm.DB) *gorm.DB { return db.Select("id", "full_name", "email") }).
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&orders).Error
	return orders, total, err
}

func (r *orderRepository) CompareAndSetStatus(ctx context.Context, id string, from, to model.OrderStatus, extra map[string]any) (bool, error) {
	updates := map[string]any{"status": to, "updated_at": time.Now().UTC()}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *orderRepository) SetPaymentRef(ctx context.Context, id, ref string) error {
	return r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", id).
		Update("payment_ref", ref).Error
}

func (r *orderRepository) AppendHistory(ctx context.Context, entry *model.StatusEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *orderRepository) HasPurchased(ctx context.Context, userID, productID string, statuses []model.OrderStatus) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("orders.user_id = ? AND order_items.product_id = ? AND orders.status IN ?", userID, productID, statuses).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *orderRepository) CountByProduct(ctx context.Context, productID string, statuses []model.OrderStatus) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Where("order_items.product_id = ?", productID)
	if len(statuses) > 0 {
		q = q.Where("orders.status IN ?", statuses)
	}
	var cnt int64
	err := q.Count(&cnt).Error
	return cnt, err
}

func (r *orderRepository) ReceiptsByUser(ctx context.Context, userID string, statuses []model.OrderStatus) ([]string, error) {
	var receipts []string
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("user_id = ? AND status IN ? AND receipt_image <> ''", userID, statuses).
		Order("created_at DESC").
		Pluck("receipt_image", &receipts).Error
	return receipts, err
}

func (r *orderRepository) ListStale(ctx context.Context, status model.OrderStatus, before time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []*model.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", status, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).Count(&count).Error
	return count, err
}

func (r *orderRepository) Revenue(ctx context.Context, statuses []model.OrderStatus) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Select("SUM(total_price)").
		Where("status IN ?", statuses).
		Row().Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
