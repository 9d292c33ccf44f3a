package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// NormaliserRegistry selects the normaliser for a file by its extension.
type NormaliserRegistry interface {
	// Normalise extracts text using the normaliser registered for raw.Extension.
	// Returns ErrUnsupportedType if none is registered.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedExtensions returns all extensions that can be normalised.
	SupportedExtensions() []string
}
