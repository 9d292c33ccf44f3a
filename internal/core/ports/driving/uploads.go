package driving

import "github.com/custodia-labs/ragdesk/internal/core/domain"

// UploadService validates and stores uploaded files before they are
// handed to the assistant.
type UploadService interface {
	// Save validates files and writes them for the session.
	// Nothing is left on disk when it fails.
	Save(sessionID string, files []domain.IncomingFile) ([]domain.UploadedFile, error)

	// Discard removes stored files that were never queued for processing.
	Discard(files []domain.UploadedFile)
}
