package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/school-system/exam-results/internal/logging"
	"github.com/school-system/exam-results/internal/models"
)

const (
	AuditActionImport     = "marks_import"
	AuditActionScaleSaved = "grading_scale_saved"

	defaultAuditLimit = 50
)

// Actor identifies who triggered an audited change.
type Actor struct {
	Name string
	IP   string
}

type AuditService struct {
	store AuditStore
}

func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{store: store}
}

// Log records a change. A nil service or a failed write never fails the
// audited operation; the failure is logged instead.
func (s *AuditService) Log(ctx context.Context, schoolID uuid.UUID, actor Actor, action, resourceType string, resourceID uuid.UUID, before, after models.JSONB) {
	if s == nil || s.store == nil {
		return
	}
	entry := &models.AuditLog{
		SchoolID:     schoolID,
		Actor:        actor.Name,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Before:       before,
		After:        after,
		IP:           actor.IP,
	}
	if err := s.store.RecordAudit(ctx, entry); err != nil {
		logging.FromContext(ctx).Error("failed to record audit log",
			"action", action, "resource_type", resourceType, "resource_id", resourceID, "error", err)
	}
}

func (s *AuditService) Recent(ctx context.Context, schoolID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultAuditLimit
	}
	return s.store.RecentAudit(ctx, schoolID, limit)
}
