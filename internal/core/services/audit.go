package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// Ensure AuditService implements the interface.
var _ driving.AuditService = (*AuditService)(nil)

// AuditService writes security events to the log, the metrics and the
// audit store.
type AuditService struct {
	store   driven.AuditStore
	metrics *metrics.Recorder
}

// NewAuditService creates an audit service. A nil store only logs.
func NewAuditService(store driven.AuditStore, recorder *metrics.Recorder) *AuditService {
	return &AuditService{store: store, metrics: recorder}
}

// Record logs and persists an event. Persistence failures are logged.
func (s *AuditService) Record(ctx context.Context, event domain.SecurityEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	logger.Event("security event",
		"type", string(event.Type),
		"session_id", event.SessionID,
		"query_id", event.QueryID,
		"risk_level", string(event.RiskLevel),
		"reason", event.Reason,
	)
	s.metrics.SecurityEvent(string(event.Type), string(event.RiskLevel))

	if s.store == nil {
		return
	}
	if err := s.store.Record(ctx, event); err != nil {
		logger.Error("Failed to persist security event %s: %v", event.ID, err)
	}
}

// List returns recorded events, newest first.
func (s *AuditService) List(ctx context.Context, filter driven.AuditFilter) ([]domain.SecurityEvent, error) {
	if s.store == nil {
		return nil, nil
	}
	events, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return events, nil
}
