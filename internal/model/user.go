package model

import (
	"strings"
	"time"
)

// Role 用户角色
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User 用户模型
type User struct {
	ID               string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FullName         string    `json:"full_name" gorm:"type:varchar(128);not null"`
	Username         string    `json:"username" gorm:"type:varchar(64);uniqueIndex;not null"`
	Email            string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	Password         string    `json:"-" gorm:"type:varchar(255);not null"`
	Role             Role      `json:"role" gorm:"type:varchar(16);not null;default:user"`
	AccountNumber    string    `json:"account_number,omitempty" gorm:"type:varchar(64)"`
	IsSuspended      bool      `json:"is_suspended" gorm:"not null;default:false"`
	SuspensionReason string    `json:"suspension_reason,omitempty" gorm:"type:varchar(255)"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// FirstName / LastName 供支付网关使用
func (u *User) FirstName() string {
	first, _ := SplitName(u.FullName)
	return first
}

func (u *User) LastName() string {
	_, last := SplitName(u.FullName)
	return last
}

// SplitName 拆分姓名，缺省时给出占位名
func SplitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "Customer", "User"
	case 1:
		return parts[0], "User"
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
