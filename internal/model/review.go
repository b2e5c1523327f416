package model

import "time"

// Review 商品评价，每个用户对每个商品至多一条
type Review struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"type:varchar(36);uniqueIndex:idx_reviews_user_product;not null"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);uniqueIndex:idx_reviews_user_product;index;not null"`
	Rating    int       `json:"rating" gorm:"not null"`
	Comment   string    `json:"comment" gorm:"type:text"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (Review) TableName() string { return "reviews" }
