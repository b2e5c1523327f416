package model

import (
	"encoding/json"
	"time"
)

// AuditLog 管理员敏感操作审计（只追加）
type AuditLog struct {
	ID        string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AdminID   string          `json:"admin_id" gorm:"type:varchar(36);index;not null"`
	Action    string          `json:"action" gorm:"type:varchar(64);index;not null"`
	Target    string          `json:"target" gorm:"type:varchar(255)"`
	Details   json.RawMessage `json:"details,omitempty" gorm:"type:text"`
	IP        string          `json:"ip" gorm:"type:varchar(64)"`
	Admin     *User           `json:"admin,omitempty" gorm:"foreignKey:AdminID"`
	CreatedAt time.Time       `json:"timestamp" gorm:"index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

// 审计动作
const (
	AuditUpdateOrderStatus   = "UPDATE_ORDER_STATUS"
	AuditCommitOrder         = "COMMIT_ORDER"
	AuditRequestResubmission = "REQUEST_RECEIPT_RESUBMISSION"
	AuditSuspendUser         = "SUSPEND_USER"
	AuditUnsuspendUser       = "UNSUSPEND_USER"
	AuditCreateProduct       = "CREATE_PRODUCT"
	AuditUpdateProduct       = "UPDATE_PRODUCT"
	AuditDeleteProduct       = "DELETE_PRODUCT"
	AuditCreateCoupon        = "CREATE_COUPON"
	AuditDeleteCoupon        = "DELETE_COUPON"
	AuditReplyComment        = "REPLY_COMMENT"
	AuditDeleteComment       = "DELETE_COMMENT"
)
