// Package ai provides factory functions for the model and storage adapters
// behind the document assistant.
package ai

import (
	"context"
	"fmt"
	"time"

	memcache "github.com/custodia-labs/ragdesk/internal/adapters/driven/cache/memory"
	rediscache "github.com/custodia-labs/ragdesk/internal/adapters/driven/cache/redis"
	ollamaembed "github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragdesk/internal/adapters/driven/embedding/openai"
	ollamallm "github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ragdesk/internal/adapters/driven/llm/openai"
	memvector "github.com/custodia-labs/ragdesk/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/ragdesk/internal/adapters/driven/vector/weaviate"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult holds the adapters the assistant runs on.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	LLMService       driven.LLMService
	VectorIndex      driven.VectorIndex
	ChunkCache       driven.ChunkCache
	Warnings         []string // Non-fatal issues found while validating.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.LLMService != nil {
		r.LLMService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.ChunkCache != nil {
		r.ChunkCache.Close()
	}
}

// Init builds every adapter from settings. Unreachable model providers
// are reported as warnings, since they may come up after the server;
// misconfiguration is an error.
func Init(ctx context.Context, settings *domain.AppSettings) (*InitResult, error) {
	result := &InitResult{}

	embedding, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	result.EmbeddingService = embedding

	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.LLMService = llm

	index, err := CreateVectorIndex(settings.VectorIndex)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.VectorIndex = index

	cache, err := CreateChunkCache(ctx, settings.Cache)
	if err != nil {
		result.Close()
		return nil, err
	}
	result.ChunkCache = cache

	if err := ping(ctx, embedding.Ping); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("embedding service %s: %v", embedding.ModelName(), err))
	}
	if err := ping(ctx, llm.Ping); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("llm service %s: %v", llm.ModelName(), err))
	}

	return result, nil
}

func ping(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return fn(ctx)
}

// CreateEmbeddingService creates the configured embedding service wrapped
// in a circuit breaker and rate limiter.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: embedding provider %q is not configured",
			domain.ErrEmbeddingUnavailable, providerOf(settings))
	}

	var svc driven.EmbeddingService
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = createOllamaEmbedding(settings)

	case domain.AIProviderOpenAI:
		openai, err := createOpenAIEmbedding(settings)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		svc = openai

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}

	return NewGuardedEmbedding(svc, settings.RequestsPerSecond), nil
}

// CreateLLMService creates the configured LLM service wrapped in a
// circuit breaker.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		provider := domain.AIProvider("")
		if settings != nil {
			provider = settings.Provider
		}
		return nil, fmt.Errorf("%w: llm provider %q is not configured", domain.ErrLLMUnavailable, provider)
	}

	var svc driven.LLMService
	switch settings.Provider {
	case domain.AIProviderOllama:
		svc = ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderOpenAI:
		openai, err := openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
		}
		svc = openai

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}

	return NewGuardedLLM(svc, 0), nil
}

// CreateVectorIndex creates the configured vector index.
func CreateVectorIndex(settings domain.VectorIndexSettings) (driven.VectorIndex, error) {
	switch settings.Backend {
	case domain.VectorBackendMemory, "":
		return memvector.New(), nil
	case domain.VectorBackendWeaviate:
		return weaviate.New(weaviate.Config{
			Host:   settings.Host,
			Scheme: settings.Scheme,
			APIKey: settings.APIKey,
		})
	default:
		return nil, fmt.Errorf("%w: vector backend %q", domain.ErrUnsupportedType, settings.Backend)
	}
}

// CreateChunkCache creates the configured chunk cache.
func CreateChunkCache(ctx context.Context, settings domain.CacheSettings) (driven.ChunkCache, error) {
	switch settings.Backend {
	case domain.CacheBackendMemory, "":
		return memcache.New(settings.TTL), nil
	case domain.CacheBackendRedis:
		return rediscache.New(ctx, rediscache.Config{
			Address:  settings.Address,
			Password: settings.Password,
			DB:       settings.DB,
			TTL:      settings.TTL,
		})
	default:
		return nil, fmt.Errorf("%w: cache backend %q", domain.ErrUnsupportedType, settings.Backend)
	}
}

// createOllamaEmbedding creates an Ollama embedding service.
func createOllamaEmbedding(settings *domain.EmbeddingSettings) driven.EmbeddingService {
	dimensions := domain.EmbeddingDimensions()[settings.Model]
	if dimensions == 0 {
		dimensions = ollamaembed.DefaultDimensions
	}

	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

// createOpenAIEmbedding creates an OpenAI embedding service.
func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	dimensions := domain.EmbeddingDimensions()[settings.Model]

	return openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: dimensions,
	})
}

func providerOf(settings *domain.EmbeddingSettings) domain.AIProvider {
	if settings == nil {
		return ""
	}
	return settings.Provider
}
