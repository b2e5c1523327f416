package model

import (
	"strings"
	"time"
)

// Coupon 优惠券
type Coupon struct {
	ID              string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Code            string    `json:"code" gorm:"type:varchar(64);uniqueIndex;not null"`
	DiscountPercent int       `json:"discount_percent" gorm:"not null"`
	RemainingUses   int       `json:"remaining_uses" gorm:"not null;default:0"`
	ExpiryDate      time.Time `json:"expiry_date" gorm:"not null"`
	IsActive        bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Coupon) TableName() string { return "coupons" }

// NormalizeCouponCode 去空格并转大写
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Expired 是否已过期
func (c *Coupon) Expired(now time.Time) bool {
	return !now.Before(c.ExpiryDate)
}
