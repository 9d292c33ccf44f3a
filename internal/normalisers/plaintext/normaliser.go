// Package plaintext extracts text from plain UTF-8 files.
package plaintext

import (
	"bytes"
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".txt"}
}

// Normalise decodes the file as UTF-8. Invalid byte sequences are
// replaced with U+FFFD rather than failing the file.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	data := bytes.TrimPrefix(raw.Content, utf8BOM)
	content := string(data)
	if !utf8.Valid(data) {
		logger.Warn("%s is not valid UTF-8, replacing invalid bytes", raw.Name)
		content = strings.ToValidUTF8(content, "�")
	}

	doc := domain.Document{
		ID:        uuid.New().String(),
		Source:    raw.Name,
		Path:      raw.Path,
		Content:   content,
		Metadata:  map[string]any{"format": "text"},
		CreatedAt: time.Now(),
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}
