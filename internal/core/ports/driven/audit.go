package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// AuditStore persists security events.
type AuditStore interface {
	// Record appends an event to the audit trail.
	Record(ctx context.Context, event domain.SecurityEvent) error

	// List returns events matching filter, newest first.
	List(ctx context.Context, filter AuditFilter) ([]domain.SecurityEvent, error)

	// Close releases resources.
	Close() error
}

// AuditFilter narrows an audit listing. Zero values match everything.
type AuditFilter struct {
	SessionID string
	Type      domain.SecurityEventType
	Limit     int
}
