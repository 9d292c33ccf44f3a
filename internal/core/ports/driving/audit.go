package driving

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// AuditService records and lists security events.
type AuditService interface {
	// Record writes an event. Failures are logged, never returned to the
	// chat path.
	Record(ctx context.Context, event domain.SecurityEvent)

	// List returns recorded events, newest first.
	List(ctx context.Context, filter driven.AuditFilter) ([]domain.SecurityEvent, error)
}
