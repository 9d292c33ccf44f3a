package mcp

import (
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Assistant answers questions from a session's documents.
	Assistant driving.AssistantService

	// Uploads stores copies of local files; kb_upload is only offered
	// when set, and only over stdio.
	Uploads driving.UploadService

	// Audit lists security events; the audit resources are empty without it.
	Audit driving.AuditService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Assistant == nil {
		return ErrMissingAssistantService
	}
	return nil
}
