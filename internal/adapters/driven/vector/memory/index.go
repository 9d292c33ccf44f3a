// Package memory provides an in-process vector index using brute-force
// cosine similarity. It suits single-instance deployments and tests where
// a session holds at most a few thousand chunks.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	record domain.VectorRecord
	norm   float64
}

// Index stores vectors per namespace in memory.
type Index struct {
	mu         sync.RWMutex
	name       string
	dimension  int
	namespaces map[string]map[string]entry
}

// New creates an empty index. EnsureIndex fixes its dimension.
func New() *Index {
	return &Index{namespaces: make(map[string]map[string]entry)}
}

// EnsureIndex records the index dimension. Calling it again with a
// different dimension is an error.
func (idx *Index) EnsureIndex(_ context.Context, name string, dimension int, metric string) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", domain.ErrInvalidInput)
	}
	if metric != driven.MetricCosine {
		return fmt.Errorf("%w: metric %q", domain.ErrUnsupportedType, metric)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension != 0 && idx.dimension != dimension {
		return fmt.Errorf("%w: index %s has dimension %d, not %d",
			domain.ErrInvalidInput, idx.name, idx.dimension, dimension)
	}
	idx.name = name
	idx.dimension = dimension
	return nil
}

// Upsert writes records, replacing existing IDs.
func (idx *Index) Upsert(_ context.Context, namespace string, records []domain.VectorRecord) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if idx.dimension == 0 {
		return fmt.Errorf("%w: index not created", domain.ErrVectorIndexUnavailable)
	}
	for _, r := range records {
		if len(r.Vector) != idx.dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, index has %d",
				domain.ErrInvalidInput, r.ID, len(r.Vector), idx.dimension)
		}
	}

	ns, ok := idx.namespaces[namespace]
	if !ok {
		ns = make(map[string]entry, len(records))
		idx.namespaces[namespace] = ns
	}
	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		ns[r.ID] = entry{record: r, norm: norm(vec)}
	}
	return nil
}

// Query scores every record of the namespace that matches the filter.
func (idx *Index) Query(_ context.Context, namespace string, vector []float32, k int,
	filter domain.VectorFilter) ([]domain.VectorMatch, error) {
	if k <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dimension != 0 && len(vector) != idx.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrInvalidInput, len(vector), idx.dimension)
	}

	qnorm := norm(vector)
	matches := make([]domain.VectorMatch, 0, len(idx.namespaces[namespace]))
	for id, e := range idx.namespaces[namespace] {
		if e.record.Metadata.SessionID != filter.SessionID {
			continue
		}
		matches = append(matches, domain.VectorMatch{
			ID:       id,
			Score:    cosine(vector, e.record.Vector, qnorm, e.norm),
			Metadata: e.record.Metadata,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// DeleteNamespace drops every record in namespace.
func (idx *Index) DeleteNamespace(_ context.Context, namespace string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.namespaces, namespace)
	return nil
}

// Describe reports the record count of namespace.
func (idx *Index) Describe(_ context.Context, namespace string) (domain.IndexStats, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return domain.IndexStats{
		Namespace:   namespace,
		VectorCount: len(idx.namespaces[namespace]),
		Dimension:   idx.dimension,
	}, nil
}

// Close releases resources.
func (idx *Index) Close() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.namespaces = make(map[string]map[string]entry)
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 for zero vectors.
func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
