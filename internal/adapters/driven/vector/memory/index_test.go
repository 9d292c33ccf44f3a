package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

func record(id, session string, vec ...float32) domain.VectorRecord {
	return domain.VectorRecord{
		ID:     id,
		Vector: vec,
		Metadata: domain.RecordMetadata{
			Text:      "text " + id,
			SessionID: session,
		},
	}
}

func newIndex(t *testing.T) *Index {
	t.Helper()
	idx := New()
	require.NoError(t, idx.EnsureIndex(context.Background(), "company-chatbot", 3, driven.MetricCosine))
	return idx
}

func TestIndex_EnsureIndex(t *testing.T) {
	ctx := context.Background()
	idx := New()

	require.NoError(t, idx.EnsureIndex(ctx, "kb", 3, driven.MetricCosine))
	require.NoError(t, idx.EnsureIndex(ctx, "kb", 3, driven.MetricCosine))

	assert.ErrorIs(t, idx.EnsureIndex(ctx, "kb", 4, driven.MetricCosine), domain.ErrInvalidInput)
	assert.ErrorIs(t, idx.EnsureIndex(ctx, "kb", 3, "dotproduct"), domain.ErrUnsupportedType)
	assert.ErrorIs(t, New().EnsureIndex(ctx, "kb", 0, driven.MetricCosine), domain.ErrInvalidInput)
}

func TestIndex_UpsertBeforeEnsure(t *testing.T) {
	err := New().Upsert(context.Background(), "ns", []domain.VectorRecord{record("a", "s", 1, 0, 0)})

	assert.ErrorIs(t, err, domain.ErrVectorIndexUnavailable)
}

func TestIndex_UpsertDimensionMismatch(t *testing.T) {
	idx := newIndex(t)

	err := idx.Upsert(context.Background(), "ns", []domain.VectorRecord{record("a", "s", 1, 0)})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	stats, _ := idx.Describe(context.Background(), "ns")
	assert.Zero(t, stats.VectorCount)
}

func TestIndex_QueryRanksByCosine(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(ctx, "ns", []domain.VectorRecord{
		record("far", "s1", 0, 0, 1),
		record("near", "s1", 1, 0.1, 0),
		record("exact", "s1", 2, 0, 0),
	}))

	matches, err := idx.Query(ctx, "ns", []float32{1, 0, 0}, 2, domain.VectorFilter{SessionID: "s1"})

	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "exact", matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, "near", matches[1].ID)
	assert.Equal(t, "text near", matches[1].Metadata.Text)
}

func TestIndex_QueryFiltersSession(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(ctx, "ns", []domain.VectorRecord{
		record("mine", "s1", 1, 0, 0),
		record("theirs", "s2", 1, 0, 0),
	}))

	matches, err := idx.Query(ctx, "ns", []float32{1, 0, 0}, 5, domain.VectorFilter{SessionID: "s1"})

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "mine", matches[0].ID)

	none, err := idx.Query(ctx, "ns", []float32{1, 0, 0}, 5, domain.VectorFilter{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIndex_QueryOtherNamespaceEmpty(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(ctx, "a", []domain.VectorRecord{record("x", "s1", 1, 0, 0)}))

	matches, err := idx.Query(ctx, "b", []float32{1, 0, 0}, 5, domain.VectorFilter{SessionID: "s1"})

	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestIndex_QueryWrongDimension(t *testing.T) {
	_, err := newIndex(t).Query(context.Background(), "ns", []float32{1}, 5, domain.VectorFilter{SessionID: "s"})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIndex_ZeroVectorScoresZero(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(ctx, "ns", []domain.VectorRecord{record("z", "s", 0, 0, 0)}))

	matches, err := idx.Query(ctx, "ns", []float32{1, 0, 0}, 1, domain.VectorFilter{SessionID: "s"})

	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Zero(t, matches[0].Score)
}

func TestIndex_UpsertReplacesAndCopies(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	r := record("a", "s", 1, 0, 0)
	require.NoError(t, idx.Upsert(ctx, "ns", []domain.VectorRecord{r}))
	r.Vector[0] = 0
	r.Vector[1] = 1
	require.NoError(t, idx.Upsert(ctx, "ns", []domain.VectorRecord{record("a", "s", 0, 0, 1)}))

	stats, err := idx.Describe(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.VectorCount)
	assert.Equal(t, 3, stats.Dimension)

	matches, _ := idx.Query(ctx, "ns", []float32{0, 0, 1}, 1, domain.VectorFilter{SessionID: "s"})
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
}

func TestIndex_DeleteNamespace(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(ctx, "a", []domain.VectorRecord{record("x", "s", 1, 0, 0)}))
	require.NoError(t, idx.Upsert(ctx, "b", []domain.VectorRecord{record("y", "s", 1, 0, 0)}))

	require.NoError(t, idx.DeleteNamespace(ctx, "a"))

	a, _ := idx.Describe(ctx, "a")
	b, _ := idx.Describe(ctx, "b")
	assert.Zero(t, a.VectorCount)
	assert.Equal(t, 1, b.VectorCount)
	assert.NoError(t, idx.DeleteNamespace(ctx, "missing"))
}

func TestIndex_QueryZeroK(t *testing.T) {
	matches, err := newIndex(t).Query(context.Background(), "ns", []float32{1, 0, 0}, 0, domain.VectorFilter{SessionID: "s"})

	require.NoError(t, err)
	assert.Nil(t, matches)
}
