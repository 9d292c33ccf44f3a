package driven

import (
	"context"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

// Distance metrics understood by EnsureIndex.
const (
	MetricCosine = "cosine"
)

// VectorIndex is a namespaced approximate nearest neighbour store.
// Every record carries a session ID in its metadata, and every query
// must filter on it.
type VectorIndex interface {
	// EnsureIndex creates the named index if it does not already exist.
	// It is idempotent.
	EnsureIndex(ctx context.Context, name string, dimension int, metric string) error

	// Upsert writes records into a namespace, replacing any with the same ID.
	Upsert(ctx context.Context, namespace string, records []domain.VectorRecord) error

	// Query returns up to k records from namespace ordered by descending
	// similarity, restricted to records matching filter.
	Query(ctx context.Context, namespace string, vector []float32, k int,
		filter domain.VectorFilter) ([]domain.VectorMatch, error)

	// DeleteNamespace removes every record in a namespace.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Describe reports how many records a namespace holds.
	Describe(ctx context.Context, namespace string) (domain.IndexStats, error)

	// Close releases resources.
	Close() error
}
