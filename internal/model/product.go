package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Category 商品分类
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryFashions    Category = "fashions"
	CategoryBooks       Category = "books"
	CategoryAll         Category = "all"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryElectronics, CategoryFashions, CategoryBooks, CategoryAll:
		return true
	}
	return false
}

// Product 商品模型，软删除后仍可被历史订单引用
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string          `json:"name" gorm:"type:varchar(255);not null"`
	Category    Category        `json:"category" gorm:"type:varchar(32);index;not null;default:all"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"`
	Description string          `json:"description" gorm:"type:text"`
	Image       string          `json:"image,omitempty" gorm:"type:varchar(255)"`
	Stock       int             `json:"stock" gorm:"not null;default:0"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (Product) TableName() string { return "products" }
