package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/storefront/internal/model"
)

// AutoMigrate 初始化数据库表结构
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Coupon{},
		&model.Order{},
		&model.OrderItem{},
		&model.StatusEntry{},
		&model.Review{},
		&model.Comment{},
		&model.AuditLog{},
		&model.OutboxEvent{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
