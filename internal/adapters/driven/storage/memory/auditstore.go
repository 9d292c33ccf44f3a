package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure AuditStore implements the interface.
var _ driven.AuditStore = (*AuditStore)(nil)

// AuditStore keeps security events in memory. Used when no audit
// database is configured.
type AuditStore struct {
	mu     sync.RWMutex
	events []domain.SecurityEvent
}

// NewAuditStore creates an empty audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

// Record appends an event.
func (s *AuditStore) Record(_ context.Context, event domain.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// List returns matching events, newest first.
func (s *AuditStore) List(_ context.Context, filter driven.AuditFilter) ([]domain.SecurityEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.SecurityEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if filter.SessionID != "" && e.SessionID != filter.SessionID {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

// Close is a no-op.
func (s *AuditStore) Close() error {
	return nil
}
