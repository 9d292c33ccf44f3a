package main

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragdesk/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
	"github.com/custodia-labs/ragdesk/internal/core/services"
	"github.com/custodia-labs/ragdesk/internal/logger"
	"github.com/custodia-labs/ragdesk/internal/metrics"
	"github.com/custodia-labs/ragdesk/internal/normalisers"
	"github.com/custodia-labs/ragdesk/internal/postprocessors"
)

// buildRuntime wires every adapter and service from settings.
func buildRuntime(ctx context.Context, settings *domain.AppSettings) (*cli.Runtime, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	recorder := metrics.New()

	store, closeStore, err := openAuditStore(settings)
	if err != nil {
		return nil, err
	}
	audit := services.NewAuditService(store, recorder)

	adapters, err := ai.Init(ctx, settings)
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	for _, w := range adapters.Warnings {
		logger.Warn("%s", w)
	}

	sessions := services.NewSessionManager(settings.Session.Expiry)
	pool := services.NewWorkerPool(settings.Session.Workers, settings.Session.QueueSize, recorder)
	processor := services.NewDocumentProcessor(
		normalisers.NewDefaultRegistry(),
		postprocessors.NewDefaultPipeline(settings.Chunking),
	)

	assistant := services.NewAssistant(*settings, services.AssistantDeps{
		Sessions:  sessions,
		Processor: processor,
		Pool:      pool,
		Embedder:  adapters.EmbeddingService,
		LLM:       adapters.LLMService,
		Index:     adapters.VectorIndex,
		Cache:     adapters.ChunkCache,
		Filter:    services.NewSecurityFilter(),
		Audit:     audit,
		Metrics:   recorder,
	})

	logger.Section("ragdesk")
	logger.Debug("Embedding: %s, LLM: %s, vector index: %s, cache: %s",
		adapters.EmbeddingService.ModelName(), adapters.LLMService.ModelName(),
		settings.VectorIndex.Backend, settings.Cache.Backend)

	return &cli.Runtime{
		Assistant: assistant,
		Uploads:   services.NewUploadStore(settings.Upload),
		Audit:     audit,
		Metrics:   recorder,
		Sweep: func() {
			if n := sessions.Sweep(); n > 0 {
				logger.Info("Expired %d sessions", n)
			}
		},
		Close: func() {
			pool.Close()
			adapters.Close()
			if err := closeStore(); err != nil {
				logger.Warn("Closing audit store: %v", err)
			}
		},
	}, nil
}

// openAudit opens only the audit trail.
func openAudit(settings *domain.AppSettings) (driving.AuditService, func(), error) {
	if settings.AuditDBPath == "" {
		logger.Warn("audit.db_path is not set; only events from this process are listed")
	}
	store, closeStore, err := openAuditStore(settings)
	if err != nil {
		return nil, nil, err
	}
	return services.NewAuditService(store, nil), func() { _ = closeStore() }, nil
}

// openAuditStore keeps the trail in SQLite when a path is configured and
// in memory otherwise.
func openAuditStore(settings *domain.AppSettings) (driven.AuditStore, func() error, error) {
	if settings.AuditDBPath == "" {
		store := memory.NewAuditStore()
		return store, store.Close, nil
	}
	db, err := sqlite.NewStore(settings.AuditDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening audit store: %w", err)
	}
	return db.AuditStore(), db.Close, nil
}
