package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order 订单模型
type Order struct {
	ID            string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID        string          `json:"user_id" gorm:"type:varchar(36);index:idx_orders_user_created;not null"`
	User          *User           `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Items         []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	Subtotal      decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	Discount      decimal.Decimal `json:"discount" gorm:"type:decimal(12,2);not null"`
	TotalPrice    decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null"`
	CouponCode    string          `json:"coupon_code,omitempty" gorm:"type:varchar(64)"`
	DeliveryInfo  DeliveryInfo    `json:"delivery_info" gorm:"embedded;embeddedPrefix:delivery_"`
	ReceiptImage  string          `json:"receipt_image,omitempty" gorm:"type:varchar(255)"`
	PaymentRef    string          `json:"payment_ref,omitempty" gorm:"type:varchar(96);index"`
	Status        OrderStatus     `json:"status" gorm:"type:varchar(32);index;not null"`
	StatusHistory []StatusEntry   `json:"status_history" gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time       `json:"created_at" gorm:"index:idx_orders_user_created"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}

// DeliveryInfo 收货信息
type DeliveryInfo struct {
	Name    string `json:"name" gorm:"type:varchar(128)" validate:"required,max=128"`
	Phone   string `json:"phone" gorm:"type:varchar(32)" validate:"required,max=32"`
	Email   string `json:"email" gorm:"type:varchar(255)" validate:"required,email"`
	Address string `json:"address" gorm:"type:varchar(512)" validate:"required,max=512"`
}

// OrderItem 订单行，下单时快照商品名与单价
type OrderItem struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID     string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	ProductID   string          `json:"product_id" gorm:"type:varchar(36);index;not null"`
	ProductName string          `json:"product_name" gorm:"type:varchar(255)"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,2);not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// LineTotal 单价 × 数量
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// StatusEntry 订单状态历史（只追加）
type StatusEntry struct {
	ID        string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID   string      `json:"order_id" gorm:"type:varchar(36);index;not null"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(32);not null"`
	Comment   string      `json:"comment" gorm:"type:varchar(512)"`
	ActorID   string      `json:"actor_id,omitempty" gorm:"type:varchar(36)"`
	CreatedAt time.Time   `json:"timestamp" gorm:"index"`
}

func (StatusEntry) TableName() string { return "order_status_history" }
