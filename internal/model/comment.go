package model

import "time"

// Comment 客户留言与管理员回复
type Comment struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Message    string    `json:"message" gorm:"type:text;not null"`
	AdminReply string    `json:"admin_reply" gorm:"type:text"`
	User       *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Comment) TableName() string { return "comments" }
