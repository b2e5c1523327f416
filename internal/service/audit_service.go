package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/storefront/internal/model"
	"github.com/d60-Lab/storefront/internal/repository"
	"github.com/d60-Lab/storefront/pkg/logger"
)

// AuditEntry 一次管理员操作
type AuditEntry struct {
	AdminID string
	Action  string
	Target  string
	Details any
	IP      string
}

// AuditService 审计日志，写入失败只记录不影响请求
type AuditService interface {
	Record(ctx context.Context, entry AuditEntry)
	ListRecent(ctx context.Context) ([]*model.AuditLog, error)
}

const auditListLimit = 100

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) {
	var details json.RawMessage
	if entry.Details != nil {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			logger.Warn("audit details not serialisable", zap.String("action", entry.Action), zap.Error(err))
		} else {
			details = raw
		}
	}
	log := &model.AuditLog{
		ID:      uuid.NewString(),
		AdminID: entry.AdminID,
		Action:  entry.Action,
		Target:  entry.Target,
		Details: details,
		IP:      entry.IP,
	}
	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("audit log write failed",
			zap.String("admin_id", entry.AdminID),
			zap.String("action", entry.Action),
			zap.String("target", entry.Target),
			zap.Error(err))
	}
}

func (s *auditService) ListRecent(ctx context.Context) ([]*model.AuditLog, error) {
	return s.repo.ListRecent(ctx, auditListLimit)
}
