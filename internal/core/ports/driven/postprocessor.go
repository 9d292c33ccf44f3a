package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// PostProcessor turns document content into chunks.
// PostProcessors are chained in a pipeline; the first one receives nil
// chunks and creates them, later ones may rewrite them.
type PostProcessor interface {
	// Name returns the processor name for logging.
	Name() string

	// Process takes a document and the chunks produced so far and returns new chunks.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
