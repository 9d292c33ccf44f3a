package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// Normaliser extracts plain text from an uploaded file.
// Each normaliser handles specific file extensions (e.g., .pdf, .docx).
type Normaliser interface {
	// SupportedExtensions returns the lower-case extensions, with dot, this normaliser handles.
	SupportedExtensions() []string

	// Normalise extracts the text of a raw file into a document.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Note: Normalisation only produces a Document with Content.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Document is the normalised document with Content field populated.
	Document domain.Document
}
