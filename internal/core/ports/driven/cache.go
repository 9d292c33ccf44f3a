package driven

import "context"

// ChunkCache keeps the full text of indexed chunks keyed by vector
// record ID. The vector index only stores a bounded preview.
type ChunkCache interface {
	// Put stores texts for a namespace, keyed by record ID.
	Put(ctx context.Context, namespace string, texts map[string]string) error

	// Get returns the texts found for ids. Missing IDs are absent from the map.
	Get(ctx context.Context, namespace string, ids []string) (map[string]string, error)

	// DeleteNamespace removes every entry of a namespace.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Close releases resources.
	Close() error
}
