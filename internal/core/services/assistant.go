package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
)

// Ensure Assistant implements the interface.
var _ driving.AssistantService = (*Assistant)(nil)

// cleanupTimeout bounds namespace deletion for reset and expired sessions.
const cleanupTimeout = 30 * time.Second

// AssistantDeps are the collaborators of an Assistant.
type AssistantDeps struct {
	Sessions  *SessionManager
	Processor *DocumentProcessor
	Pool      *WorkerPool
	Embedder  driven.EmbeddingService
	LLM       driven.LLMService
	Index     driven.VectorIndex
	Cache     driven.ChunkCache
	Filter    *SecurityFilter
	Audit     driving.AuditService
	Metrics   *metrics.Recorder
}

// Assistant binds uploads, processing and chat to isolated sessions.
type Assistant struct {
	settings domain.AppSettings
	sessions *SessionManager
	docs     *DocumentProcessor
	pool     *WorkerPool
	embedder driven.EmbeddingService
	llm      driven.LLMService
	index    driven.VectorIndex
	cache    driven.ChunkCache
	filter   *SecurityFilter
	audit    driving.AuditService
	metrics  *metrics.Recorder
}

// NewAssistant creates an assistant and registers expiry cleanup on the
// session manager.
func NewAssistant(settings domain.AppSettings, deps AssistantDeps) *Assistant {
	if deps.Filter == nil {
		deps.Filter = NewSecurityFilter()
	}
	a := &Assistant{
		settings: settings,
		sessions: deps.Sessions,
		docs:     deps.Processor,
		pool:     deps.Pool,
		embedder: deps.Embedder,
		llm:      deps.LLM,
		index:    deps.Index,
		cache:    deps.Cache,
		filter:   deps.Filter,
		audit:    deps.Audit,
		metrics:  deps.Metrics,
	}
	a.sessions.OnExpire(func(s domain.Session) {
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()
		a.cleanup(ctx, s)
		a.metrics.SetActiveSessions(a.sessions.Len())
	})
	return a
}

// CreateSession registers a new idle session.
func (a *Assistant) CreateSession(_ context.Context) (domain.Session, error) {
	s := a.sessions.Create("")
	a.metrics.SetActiveSessions(a.sessions.Len())
	return s, nil
}

// Upload claims an existing session and queues processing of the stored
// files. A new upload replaces the session's previous documents.
func (a *Assistant) Upload(_ context.Context, sessionID string, paths []string) (domain.UploadResult, error) {
	if len(paths) == 0 {
		return domain.UploadResult{}, fmt.Errorf("%w: no files selected", domain.ErrInvalidInput)
	}

	// Unknown ids are never re-registered: a reset id must stay dead so
	// its orphaned job keeps failing its checkpoints.
	prev, ok := a.sessions.Get(sessionID)
	if !ok {
		return domain.UploadResult{}, fmt.Errorf("%w: session %s", domain.ErrNotFound, sessionID)
	}

	namespace := SessionNamespace(a.settings.VectorIndex.Namespace, sessionID)
	if err := a.sessions.BeginProcessing(sessionID, paths, namespace); err != nil {
		a.metrics.Upload("rejected")
		return domain.UploadResult{}, err
	}
	removeFiles(stale(prev.Documents, paths))

	job := func(ctx context.Context) {
		a.process(ctx, sessionID, namespace, paths)
	}
	if err := a.pool.Submit(job); err != nil {
		_ = a.sessions.UpdateStatus(sessionID, domain.SessionIdle, 0)
		a.metrics.Upload("rejected")
		return domain.UploadResult{}, err
	}

	a.metrics.Upload("accepted")
	logger.Info("Session %s: queued %d files", sessionID, len(paths))
	return domain.UploadResult{SessionID: sessionID, DocumentCount: len(paths)}, nil
}

// process runs the ingestion pipeline for one upload, reporting progress
// through the session record.
func (a *Assistant) process(ctx context.Context, sessionID, namespace string, paths []string) {
	logger.Section("Processing " + sessionID)
	start := time.Now()

	var store *VectorStore
	err := func() error {
		checkpoint := func(progress int) error {
			return a.sessions.UpdateStatus(sessionID, domain.SessionProcessing, progress)
		}

		docs, err := a.docs.Load(ctx, paths)
		if err != nil {
			return err
		}
		if len(docs) == 0 {
			return domain.ErrNoDocuments
		}
		if err := checkpoint(domain.ProgressLoaded); err != nil {
			return err
		}

		chunks, err := a.docs.Chunk(ctx, docs)
		if err != nil {
			return fmt.Errorf("chunk documents: %w", err)
		}
		logger.Info("Session %s: %d documents, %d chunks", sessionID, len(docs), len(chunks))
		if err := checkpoint(domain.ProgressChunked); err != nil {
			return err
		}

		store, err = NewVectorStore(ctx, a.vectorStoreConfig(sessionID, namespace), a.embedder, a.index, a.cache)
		if err != nil {
			return err
		}
		if err := store.Clear(ctx); err != nil {
			return err
		}
		if err := checkpoint(domain.ProgressInitialised); err != nil {
			return err
		}

		if err := store.Add(ctx, chunks); err != nil {
			return err
		}
		a.metrics.ChunksIndexed(len(chunks))
		if err := checkpoint(domain.ProgressIndexed); err != nil {
			return err
		}

		bot := NewSecureChatbot(
			NewRAGChatbot(store, a.llm, ChatbotConfigFrom(a.settings.LLM)),
			a.filter, a.audit, sessionID,
		)
		return a.sessions.MarkReady(sessionID, store, bot)
	}()

	switch {
	case err == nil:
		a.metrics.Upload("ready")
		logger.Info("Session %s ready in %s", sessionID, time.Since(start).Round(time.Millisecond))
	case errors.Is(err, domain.ErrSessionReplaced):
		logger.Warn("Session %s was reset during processing, discarding results", sessionID)
		if store != nil {
			cctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
			defer cancel()
			if cerr := store.Clear(cctx); cerr != nil {
				logger.Warn("Failed to clear orphaned namespace %s: %v", namespace, cerr)
			}
		}
	default:
		logger.Error("Session %s: processing failed: %v", sessionID, err)
		a.metrics.Upload("failed")
		if ferr := a.sessions.Fail(sessionID, err); ferr != nil {
			logger.Warn("Session %s: %v", sessionID, ferr)
		}
	}
}

func (a *Assistant) vectorStoreConfig(sessionID, namespace string) VectorStoreConfig {
	vi := a.settings.VectorIndex
	return VectorStoreConfig{
		IndexName:       vi.IndexName,
		Namespace:       namespace,
		SessionID:       sessionID,
		UpsertBatchSize: vi.UpsertBatchSize,
		EmbedBatchSize:  a.settings.Embedding.BatchSize,
		SettleDelay:     vi.SettleDelay,
		SettleTimeout:   vi.SettleTimeout,
	}
}

// Status reports processing progress. Unknown sessions report idle.
func (a *Assistant) Status(ctx context.Context, sessionID string) domain.StatusReport {
	s, ok := a.sessions.Get(sessionID)
	if !ok {
		return domain.StatusReport{SessionID: sessionID, Status: domain.SessionIdle}
	}

	report := domain.StatusReport{
		SessionID:     s.ID,
		Status:        s.Status,
		Progress:      s.Progress,
		DocumentCount: len(s.Documents),
		MessageCount:  s.MessageCount,
		Error:         s.Error,
	}
	if store, ok := a.sessions.Store(sessionID); ok {
		if stats, err := store.Stats(ctx); err == nil {
			report.VectorCount = stats.VectorCount
		}
	}
	return report
}

// Chat answers a message from the session's documents.
func (a *Assistant) Chat(ctx context.Context, sessionID, message string) (*domain.ChatResponse, error) {
	start := time.Now()
	if strings.TrimSpace(message) == "" {
		return nil, domain.ErrEmptyMessage
	}

	bot, _, err := a.sessions.Ready(sessionID)
	if err != nil {
		a.metrics.Chat("not_ready", time.Since(start))
		return nil, err
	}

	k := a.settings.Session.RetrievalK
	if k <= 0 {
		k = DefaultRetrievalK
	}
	resp := bot.Respond(ctx, message, k)
	a.sessions.IncrementMessages(sessionID)

	outcome := "answered"
	switch {
	case resp.SecurityFlag:
		outcome = "blocked"
	case resp.Confidence == 0:
		outcome = "no_answer"
	}
	a.metrics.Chat(outcome, time.Since(start))
	return &resp, nil
}

// Reset discards the session, its files and its namespace, and returns
// the id of a fresh idle session. The old id is invalidated so that any
// job still running for it stops at its next checkpoint.
func (a *Assistant) Reset(ctx context.Context, sessionID string) (string, error) {
	if old, ok := a.sessions.Remove(sessionID); ok {
		a.cleanup(ctx, old)
		logger.Info("Session %s reset", sessionID)
	}
	fresh := a.sessions.Create("")
	a.metrics.SetActiveSessions(a.sessions.Len())
	return fresh.ID, nil
}

// cleanup removes a discarded session's files and vector namespace.
func (a *Assistant) cleanup(ctx context.Context, s domain.Session) {
	removeFiles(s.Documents)

	namespace := s.Namespace
	if namespace == "" {
		namespace = SessionNamespace(a.settings.VectorIndex.Namespace, s.ID)
	}
	if a.index != nil {
		if err := a.index.DeleteNamespace(ctx, namespace); err != nil {
			logger.Warn("Failed to delete namespace %s: %v", namespace, err)
		}
	}
	if a.cache != nil {
		if err := a.cache.DeleteNamespace(ctx, namespace); err != nil {
			logger.Warn("Failed to clear chunk cache %s: %v", namespace, err)
		}
	}
}

// stale returns the entries of old missing from current.
func stale(old, current []string) []string {
	keep := make(map[string]bool, len(current))
	for _, p := range current {
		keep[p] = true
	}
	var out []string
	for _, p := range old {
		if !keep[p] {
			out = append(out, p)
		}
	}
	return out
}

// removeFiles deletes files and then any parent directory left empty.
func removeFiles(paths []string) {
	dirs := make(map[string]bool)
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Warn("Failed to remove %s: %v", p, err)
		}
		dirs[filepath.Dir(p)] = true
	}
	for dir := range dirs {
		// Fails harmlessly while the directory still holds files.
		if os.Remove(dir) == nil {
			_ = os.Remove(filepath.Dir(dir))
		}
	}
}
