package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/d60-Lab/storefront/internal/cache"
	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
)

// ProductInput 商品创建/更新参数，更新时 nil 字段保持不变
type ProductInput struct {
	Name        *string          `json:"name"`
	Category    *model.Category  `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Description *string          `json:"description"`
	Image       *string          `json:"image"`
	Stock       *int             `json:"stock"`
}

// ProductService 商品目录
type ProductService interface {
	List(ctx context.Context, category model.Category) ([]*model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	Create(ctx context.Context, in ProductInput) (*model.Product, error)
	Update(ctx context.Context, id string, in ProductInput) (*model.Product, error)
	// Delete 有进行中订单时拒绝；有历史订单时需 force 并软删除；否则物理删除。返回是否为软删除
	Delete(ctx context.Context, id string, force bool) (bool, error)
}

type productService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	cache    *cache.CatalogCache
}

func NewProductService(products repository.ProductRepository, orders repository.OrderRepository, catalog *cache.CatalogCache) ProductService {
	if catalog == nil {
		catalog = cache.NewCatalogCache(nil, 0)
	}
	return &productService{products: products, orders: orders, cache: catalog}
}

func (s *productService) List(ctx context.Context, category model.Category) ([]*model.Product, error) {
	if category != "" && !category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, category)
	}
	return s.cache.Products(ctx, category, func(ctx context.Context) ([]*model.Product, error) {
		return s.products.List(ctx, category)
	})
}

func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	p, err := s.cache.Product(ctx, id, func(ctx context.Context) (*model.Product, error) {
		return s.products.GetByID(ctx, id)
	})
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	return p, nil
}

func (s *productService) Create(ctx context.Context, in ProductInput) (*model.Product, error) {
	p := &model.Product{ID: uuid.NewString(), Category: model.CategoryAll}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.Price == nil {
		return nil, fmt.Errorf("%w: price is required", ErrInvalidInput)
	}
	if err := applyProductInput(p, in); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, p.ID)
	return p, nil
}

func (s *productService) Update(ctx context.Context, id string, in ProductInput) (*model.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	if err := applyProductInput(p, in); err != nil {
		return nil, err
	}
	// 只写入请求中出现的字段，库存扣减/归还不会被读到的旧值覆盖
	if changes := productChanges(p, in); len(changes) > 0 {
		if err := s.products.Update(ctx, id, changes); err != nil {
			return nil, notFound(err, ErrProductNotFound)
		}
	}
	s.cache.Invalidate(ctx, id)
	fresh, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrProductNotFound)
	}
	return fresh, nil
}

func (s *productService) Delete(ctx context.Context, id string, force bool) (bool, error) {
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return false, notFound(err, ErrProductNotFound)
	}
	active, err := s.orders.CountByProduct(ctx, id, model.ActiveStatuses())
	if err != nil {
		return false, err
	}
	if active > 0 {
		return false, ErrProductActive
	}
	linked, err := s.orders.CountByProduct(ctx, id, nil)
	if err != nil {
		return false, err
	}
	if linked > 0 && !force {
		return false, ErrProductLinked
	}

	soft := linked > 0
	var removed bool
	if soft {
		removed, err = s.products.SoftDelete(ctx, id, model.ActiveStatuses())
	} else {
		removed, err = s.products.HardDelete(ctx, id)
	}
	if err != nil {
		return false, notFound(err, ErrProductNotFound)
	}
	if !removed {
		// 检查之后又有订单下单了该商品
		return false, ErrProductActive
	}
	s.cache.Invalidate(ctx, id)
	return soft, nil
}

func applyProductInput(p *model.Product, in ProductInput) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("%w: name is required", ErrInvalidInput)
		}
		p.Name = name
	}
	if in.Category != nil {
		if !in.Category.Valid() {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, *in.Category)
		}
		p.Category = *in.Category
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
		}
		p.Price = in.Price.Round(2)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Image != nil {
		p.Image = *in.Image
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
		}
		p.Stock = *in.Stock
	}
	return nil
}

// productChanges 把已校验的输入转换为待更新的列
func productChanges(p *model.Product, in ProductInput) map[string]interface{} {
	changes := make(map[string]interface{})
	if in.Name != nil {
		changes["name"] = p.Name
	}
	if in.Category != nil {
		changes["category"] = p.Category
	}
	if in.Price != nil {
		changes["price"] = p.Price
	}
	if in.Description != nil {
		changes["description"] = p.Description
	}
	if in.Image != nil {
		changes["image"] = p.Image
	}
	if in.Stock != nil {
		changes["stock"] = p.Stock
	}
	return changes
}
