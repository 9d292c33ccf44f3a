package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// --- Mock implementations ---

var errMock = errors.New("mock failure")

// mockEmbeddingService implements driven.EmbeddingService for testing.
// Vectors count occurrences of a fixed vocabulary so similar texts
// land close together.
type mockEmbeddingService struct {
	mu         sync.Mutex
	embedErr   error
	batchErr   error
	batchCalls []int
	short      bool
}

var mockVocabulary = []string{"refund", "loan", "card", "account", "policy", "hours", "fee", "rate"}

func (m *mockEmbeddingService) vector(text string) []float32 {
	lower := strings.ToLower(text)
	v := make([]float32, len(mockVocabulary)+1)
	for i, w := range mockVocabulary {
		v[i] = float32(strings.Count(lower, w))
	}
	v[len(mockVocabulary)] = 0.1
	return v
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls = append(m.batchCalls, len(texts))
	m.mu.Unlock()
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, m.vector(t))
	}
	if m.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int {
	return len(mockVocabulary) + 1
}

func (m *mockEmbeddingService) ModelName() string {
	return "mock-embed"
}

func (m *mockEmbeddingService) Ping(_ context.Context) error {
	return nil
}

func (m *mockEmbeddingService) Close() error {
	return nil
}

// mockVectorIndex implements driven.VectorIndex for testing.
type mockVectorIndex struct {
	mu          sync.Mutex
	records     map[string]map[string]domain.VectorRecord
	ensured     []string
	upserts     []int
	ensureErr   error
	upsertErr   error
	queryErr    error
	describeErr error
	deleteErr   error

	// extra is returned from every query regardless of filter.
	extra []domain.VectorMatch
}

func newMockVectorIndex() *mockVectorIndex {
	return &mockVectorIndex{records: make(map[string]map[string]domain.VectorRecord)}
}

func (m *mockVectorIndex) EnsureIndex(_ context.Context, name string, _ int, _ string) error {
	if m.ensureErr != nil {
		return m.ensureErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensured = append(m.ensured, name)
	return nil
}

func (m *mockVectorIndex) Upsert(_ context.Context, namespace string, records []domain.VectorRecord) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts = append(m.upserts, len(records))
	ns, ok := m.records[namespace]
	if !ok {
		ns = make(map[string]domain.VectorRecord)
		m.records[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = r
	}
	return nil
}

func (m *mockVectorIndex) Query(_ context.Context, namespace string, vector []float32, k int,
	filter domain.VectorFilter) ([]domain.VectorMatch, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var matches []domain.VectorMatch
	matches = append(matches, m.extra...)
	for _, r := range m.records[namespace] {
		if r.Metadata.SessionID != filter.SessionID {
			continue
		}
		matches = append(matches, domain.VectorMatch{ID: r.ID, Score: dot(vector, r.Vector), Metadata: r.Metadata})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (m *mockVectorIndex) DeleteNamespace(_ context.Context, namespace string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, namespace)
	return nil
}

func (m *mockVectorIndex) Describe(_ context.Context, namespace string) (domain.IndexStats, error) {
	if m.describeErr != nil {
		return domain.IndexStats{}, m.describeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.IndexStats{Namespace: namespace, VectorCount: len(m.records[namespace])}, nil
}

func (m *mockVectorIndex) Close() error {
	return nil
}

func (m *mockVectorIndex) count(namespace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records[namespace])
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		if i < len(b) {
			s += float64(a[i] * b[i])
		}
	}
	return s
}

// mockChunkCache implements driven.ChunkCache for testing.
type mockChunkCache struct {
	mu     sync.Mutex
	texts  map[string]map[string]string
	getErr error
	putErr error
}

func newMockChunkCache() *mockChunkCache {
	return &mockChunkCache{texts: make(map[string]map[string]string)}
}

func (m *mockChunkCache) Put(_ context.Context, namespace string, texts map[string]string) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.texts[namespace]
	if !ok {
		ns = make(map[string]string)
		m.texts[namespace] = ns
	}
	for id, t := range texts {
		ns[id] = t
	}
	return nil
}

func (m *mockChunkCache) Get(_ context.Context, namespace string, ids []string) (map[string]string, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string)
	for _, id := range ids {
		if t, ok := m.texts[namespace][id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (m *mockChunkCache) DeleteNamespace(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.texts, namespace)
	return nil
}

func (m *mockChunkCache) Close() error {
	return nil
}

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	messages []driven.ChatMessage
	opts     driven.ChatOptions
	block    bool
}

func (m *mockLLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	m.calls++
	m.messages = messages
	m.opts = opts
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLMService) ModelName() string {
	return "mock-llm"
}

func (m *mockLLMService) Ping(_ context.Context) error {
	return nil
}

func (m *mockLLMService) Close() error {
	return nil
}

func (m *mockLLMService) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockAuditStore implements driven.AuditStore for testing.
type mockAuditStore struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
	err    error
}

func (m *mockAuditStore) Record(_ context.Context, event domain.SecurityEvent) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockAuditStore) List(_ context.Context, filter driven.AuditFilter) ([]domain.SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SecurityEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if filter.SessionID != "" && e.SessionID != filter.SessionID {
			continue
		}
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *mockAuditStore) Close() error {
	return nil
}

func (m *mockAuditStore) types() []domain.SecurityEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SecurityEventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}
