package driving

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// AssistantService is the session-scoped document assistant.
// Every call is addressed by a session ID; sessions never see each
// other's documents, vectors or conversation.
type AssistantService interface {
	// CreateSession registers a new idle session and returns it.
	CreateSession(ctx context.Context) (domain.Session, error)

	// Upload queues stored files for background processing.
	// The session moves to processing before Upload returns.
	Upload(ctx context.Context, sessionID string, paths []string) (domain.UploadResult, error)

	// Status reports processing progress. Unknown sessions report idle.
	Status(ctx context.Context, sessionID string) domain.StatusReport

	// Chat answers a message using the session's documents.
	// Returns ErrSessionNotReady until processing has finished.
	Chat(ctx context.Context, sessionID, message string) (*domain.ChatResponse, error)

	// Reset discards the session's documents and returns a fresh session ID.
	Reset(ctx context.Context, sessionID string) (string, error)
}
