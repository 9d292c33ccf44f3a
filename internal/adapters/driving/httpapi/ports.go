package httpapi

import (
	"errors"

	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// ErrMissingAssistantService is returned when no assistant is wired.
var ErrMissingAssistantService = errors.New("assistant service is required")

// ErrMissingUploadService is returned when no upload store is wired.
var ErrMissingUploadService = errors.New("upload service is required")

// Ports aggregates what the HTTP server drives.
type Ports struct {
	Assistant driving.AssistantService
	Uploads   driving.UploadService

	// Metrics is optional; /metrics is only served when set.
	Metrics *metrics.Recorder
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Assistant == nil {
		return ErrMissingAssistantService
	}
	if p.Uploads == nil {
		return ErrMissingUploadService
	}
	return nil
}
