package service

import (
	"context"

	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/repo"
)

// AuditService reads the audit log. Records are written by the other
// services inside their own transactions.
type AuditService struct {
	audit repo.AuditRepo
}

// NewAuditService constructs an AuditService backed by the provided repo.
func NewAuditService(audit repo.AuditRepo) *AuditService {
	return &AuditService{audit: audit}
}

// List returns the newest audit records matching f.
func (s *AuditService) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditRecord, error) {
	if f.Action != "" && f.Action != domain.AuditCreate && f.Action != domain.AuditEdit && f.Action != domain.AuditDelete {
		return nil, classify("service.AuditService.List", domain.NewValidationError([]string{
			"unknown audit action " + string(f.Action) + " (allowed: CREATE, EDIT, DELETE)",
		}))
	}
	records, err := s.audit.List(ctx, f)
	if err != nil {
		return nil, classify("service.AuditService.List", err)
	}
	if records == nil {
		return []domain.AuditRecord{}, nil
	}
	return records, nil
}
