package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/storefront/internal/model"
)

// ProductRepository 商品仓储接口
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	// Update 只写入 changes 中的列，商品不存在时返回 gorm.ErrRecordNotFound
	Update(ctx context.Context, id string, changes map[string]interface{}) error
	// GetByID 查询未删除商品
	GetByID(ctx context.Context, id string) (*model.Product, error)
	// List 按分类查询未删除商品，category 为空或 all 时不过滤
	List(ctx context.Context, category model.Category) ([]*model.Product, error)
	// ReserveStock 条件扣减库存，库存不足时返回 false
	ReserveStock(ctx context.Context, id string, qty int) (bool, error)
	// ReleaseStock 归还库存（含已软删除商品）
	ReleaseStock(ctx context.Context, id string, qty int) error
	// SoftDelete 锁定商品行后软删除，仍被 active 状态订单引用时不删除并返回 false
	SoftDelete(ctx context.Context, id string, active []model.OrderStatus) (bool, error)
	// HardDelete 锁定商品行后物理删除，被任何订单引用时不删除并返回 false
	HardDelete(ctx context.Context, id string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepository{db: db} }

func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepository) Update(ctx context.Context, id string, changes map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", id).
		Updates(changes)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context, category model.Category) ([]*model.Product, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if category != "" && category != model.CategoryAll {
		q = q.Where("category = ?", category)
	}
	var res []*model.Product
	err := q.Find(&res).Error
	return res, err
}

func (r *productRepository) ReserveStock(ctx context.Context, id string, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepository) ReleaseStock(ctx context.Context, id string, qty int) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Model(&model.Product{}).
		Where("id = ?", id).
		Update("stock", gorm.Expr("stock + ?", qty)).Error
}

func (r *productRepository) SoftDelete(ctx context.Context, id string, active []model.OrderStatus) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProduct(tx, id); err != nil {
			return err
		}
		refs := tx.Table("order_items").
			Select("1").
			Joins("JOIN orders ON orders.id = order_items.order_id").
			Where("order_items.product_id = ? AND orders.status IN ?", id, active)
		res := tx.Where("id = ?", id).Where("NOT EXISTS (?)", refs).Delete(&model.Product{})
		removed = res.RowsAffected == 1
		return res.Error
	})
	return removed, err
}

func (r *productRepository) HardDelete(ctx context.Context, id string) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProduct(tx, id); err != nil {
			return err
		}
		refs := tx.Table("order_items").Select("1").Where("product_id = ?", id)
		res := tx.Unscoped().Where("id = ?", id).Where("NOT EXISTS (?)", refs).Delete(&model.Product{})
		removed = res.RowsAffected == 1
		return res.Error
	})
	return removed, err
}

// lockProduct 与下单扣减库存争用同一行锁，删除判断期间不会插入新的订单明细
func lockProduct(tx *gorm.DB, id string) error {
	var p model.Product
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		Where("id = ?", id).
		First(&p).Error
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Count(&cnt).Error
	return cnt, err
}
