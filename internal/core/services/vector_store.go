package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Default vector store parameters.
const (
	DefaultUpsertBatchSize = 100
	DefaultEmbedBatchSize  = 64
	defaultPollInterval    = 200 * time.Millisecond
)

// VectorStoreConfig addresses one session's slice of the vector index.
type VectorStoreConfig struct {
	// IndexName is the index shared by all sessions.
	IndexName string

	// Namespace is the session's partition of the index.
	Namespace string

	// SessionID is written to every record and required on every query.
	SessionID string

	UpsertBatchSize int
	EmbedBatchSize  int

	// SettleDelay is slept after the final batch when the index cannot
	// report counts. SettleTimeout bounds polling when it can.
	SettleDelay   time.Duration
	SettleTimeout time.Duration
	PollInterval  time.Duration
}

// SessionNamespace derives the namespace that holds one session's records.
func SessionNamespace(base, sessionID string) string {
	return base + "_" + sessionID
}

// VectorStore embeds chunks into a session's namespace and serves
// similarity search restricted to that session.
type VectorStore struct {
	cfg      VectorStoreConfig
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	cache    driven.ChunkCache
	sleep    func(context.Context, time.Duration) error
}

// NewVectorStore ensures the index exists and returns a store bound to
// one session. Index creation failure is returned to the caller.
func NewVectorStore(
	ctx context.Context,
	cfg VectorStoreConfig,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	cache driven.ChunkCache,
) (*VectorStore, error) {
	if embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}
	if index == nil {
		return nil, domain.ErrVectorIndexUnavailable
	}
	if cfg.SessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}
	if cfg.UpsertBatchSize <= 0 {
		cfg.UpsertBatchSize = DefaultUpsertBatchSize
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	if err := index.EnsureIndex(ctx, cfg.IndexName, embedder.Dimensions(), driven.MetricCosine); err != nil {
		return nil, fmt.Errorf("ensure index %s: %w", cfg.IndexName, err)
	}
	logger.Info("Connected to vector index: %s (namespace %s)", cfg.IndexName, cfg.Namespace)

	return &VectorStore{
		cfg:      cfg,
		embedder: embedder,
		index:    index,
		cache:    cache,
		sleep:    sleepContext,
	}, nil
}

// Namespace returns the namespace this store writes to.
func (s *VectorStore) Namespace() string {
	return s.cfg.Namespace
}

// SessionID returns the session this store is bound to.
func (s *VectorStore) SessionID() string {
	return s.cfg.SessionID
}

// Add embeds chunks and upserts them into the session's namespace.
// Any failure aborts the add; partial indexing is reported as an error.
func (s *VectorStore) Add(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	logger.Info("Adding %d chunks to namespace %s", len(chunks), s.cfg.Namespace)

	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return err
	}

	before := s.count(ctx)

	records := make([]domain.VectorRecord, len(chunks))
	texts := make(map[string]string, len(chunks))
	now := time.Now().UTC()
	for i, chunk := range chunks {
		id := fmt.Sprintf("%s_%s_%d", s.cfg.Namespace, Checksum(chunk.Content)[:8], i)
		created := chunk.CreatedAt
		if created.IsZero() {
			created = now
		}
		records[i] = domain.VectorRecord{
			ID:     id,
			Vector: vectors[i],
			Metadata: domain.RecordMetadata{
				Text:       truncateRunes(chunk.Content, domain.PreviewLimit),
				Source:     chunk.Source,
				DocType:    chunk.DocType,
				ChunkIndex: chunk.Index,
				SessionID:  s.cfg.SessionID,
				Namespace:  s.cfg.Namespace,
				CreatedAt:  created,
			},
		}
		texts[id] = chunk.Content
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, s.cfg.Namespace, texts); err != nil {
			// Search falls back to the stored preview.
			logger.Warn("Failed to cache chunk text for %s: %v", s.cfg.Namespace, err)
		}
	}

	batches := (len(records) + s.cfg.UpsertBatchSize - 1) / s.cfg.UpsertBatchSize
	for b := 0; b < batches; b++ {
		start := b * s.cfg.UpsertBatchSize
		end := min(start+s.cfg.UpsertBatchSize, len(records))
		if err := s.index.Upsert(ctx, s.cfg.Namespace, records[start:end]); err != nil {
			return fmt.Errorf("upsert batch %d/%d: %w", b+1, batches, err)
		}
		logger.Debug("Uploaded batch %d/%d", b+1, batches)
	}

	if err := s.settle(ctx, before, len(records)); err != nil {
		return err
	}

	logger.Info("Added %d chunks to namespace %s for session %s", len(records), s.cfg.Namespace, s.cfg.SessionID)
	return nil
}

// embed generates vectors in batches, one per chunk, in order.
func (s *VectorStore) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.cfg.EmbedBatchSize {
		end := min(start+s.cfg.EmbedBatchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}

		batch, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, fmt.Errorf("embed chunks %d-%d: got %d vectors for %d texts",
				start, end-1, len(batch), len(texts))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// count returns the namespace size, or -1 when the index cannot say.
func (s *VectorStore) count(ctx context.Context) int {
	stats, err := s.index.Describe(ctx, s.cfg.Namespace)
	if err != nil {
		return -1
	}
	return stats.VectorCount
}

// settle waits until the index reflects an upsert of n records. When the
// index cannot report counts it falls back to a fixed delay. Timing out
// is not an error: the records were accepted and will become visible.
func (s *VectorStore) settle(ctx context.Context, before, n int) error {
	if before < 0 {
		return s.sleep(ctx, s.cfg.SettleDelay)
	}

	deadline := time.Now().Add(s.cfg.SettleTimeout)
	for {
		if c := s.count(ctx); c >= before+n || c < 0 {
			return nil
		}
		if time.Now().After(deadline) {
			logger.Warn("Namespace %s did not reflect %d new records within %s", s.cfg.Namespace, n, s.cfg.SettleTimeout)
			return nil
		}
		if err := s.sleep(ctx, s.cfg.PollInterval); err != nil {
			return err
		}
	}
}

// Search returns up to k passages most similar to query, best first.
// Only records tagged with this store's session are returned. Failures
// are logged and yield no passages.
func (s *VectorStore) Search(ctx context.Context, query string, k int) []domain.Passage {
	if k <= 0 {
		return nil
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Error("Error embedding query for session %s: %v", s.cfg.SessionID, err)
		return nil
	}

	matches, err := s.index.Query(ctx, s.cfg.Namespace, vector, k, domain.VectorFilter{SessionID: s.cfg.SessionID})
	if err != nil {
		logger.Error("Error searching namespace %s: %v", s.cfg.Namespace, err)
		return nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	full := s.cachedTexts(ctx, ids)

	passages := make([]domain.Passage, 0, len(matches))
	for _, m := range matches {
		if m.Metadata.SessionID != s.cfg.SessionID {
			logger.Warn("Dropping record %s from another session", m.ID)
			continue
		}
		content, ok := full[m.ID]
		if !ok {
			content = m.Metadata.Text
		}
		passages = append(passages, domain.Passage{
			Chunk: domain.Chunk{
				ID:        m.ID,
				Source:    m.Metadata.Source,
				DocType:   m.Metadata.DocType,
				Content:   content,
				Index:     m.Metadata.ChunkIndex,
				CreatedAt: m.Metadata.CreatedAt,
			},
			Score: m.Score,
		})
		if len(passages) == k {
			break
		}
	}
	return passages
}

func (s *VectorStore) cachedTexts(ctx context.Context, ids []string) map[string]string {
	if s.cache == nil || len(ids) == 0 {
		return nil
	}
	texts, err := s.cache.Get(ctx, s.cfg.Namespace, ids)
	if err != nil {
		logger.Warn("Chunk cache unavailable, using stored previews: %v", err)
		return nil
	}
	return texts
}

// Stats describes the session's namespace.
func (s *VectorStore) Stats(ctx context.Context) (domain.IndexStats, error) {
	stats, err := s.index.Describe(ctx, s.cfg.Namespace)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("describe %s: %w", s.cfg.Namespace, err)
	}
	if stats.Dimension == 0 {
		stats.Dimension = s.embedder.Dimensions()
	}
	return stats, nil
}

// Clear removes every record and cached text in the session's namespace.
func (s *VectorStore) Clear(ctx context.Context) error {
	if err := s.index.DeleteNamespace(ctx, s.cfg.Namespace); err != nil {
		return fmt.Errorf("delete namespace %s: %w", s.cfg.Namespace, err)
	}
	if s.cache != nil {
		if err := s.cache.DeleteNamespace(ctx, s.cfg.Namespace); err != nil {
			logger.Warn("Failed to clear chunk cache for %s: %v", s.cfg.Namespace, err)
		}
	}
	return nil
}

// truncateRunes returns at most n runes of s.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
