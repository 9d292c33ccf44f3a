package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider  = "embedding.provider"
	keyEmbedModel     = "embedding.model"
	keyEmbedBaseURL   = "embedding.base_url"
	keyEmbedAPIKey    = "embedding.api_key"
	keyEmbedBatchSize = "embedding.batch_size"
	keyEmbedRPS       = "embedding.requests_per_second"

	keyLLMProvider    = "llm.provider"
	keyLLMModel       = "llm.model"
	keyLLMBaseURL     = "llm.base_url"
	keyLLMAPIKey      = "llm.api_key"
	keyLLMTemperature = "llm.temperature"
	keyLLMMaxTokens   = "llm.max_tokens"
	keyLLMTimeout     = "llm.timeout"

	keyVectorBackend       = "vector_index.backend"
	keyVectorHost          = "vector_index.host"
	keyVectorScheme        = "vector_index.scheme"
	keyVectorAPIKey        = "vector_index.api_key"
	keyVectorIndexName     = "vector_index.index_name"
	keyVectorNamespace     = "vector_index.namespace"
	keyVectorUpsertBatch   = "vector_index.upsert_batch_size"
	keyVectorSettleDelay   = "vector_index.settle_delay"
	keyVectorSettleTimeout = "vector_index.settle_timeout"

	keyCacheBackend  = "cache.backend"
	keyCacheAddress  = "cache.address"
	keyCachePassword = "cache.password"
	keyCacheDB       = "cache.db"
	keyCacheTTL      = "cache.ttl"

	keyChunkSize    = "chunking.size"
	keyChunkOverlap = "chunking.overlap"

	keyUploadDir        = "upload.dir"
	keyUploadExtensions = "upload.allowed_extensions"
	keyUploadMaxFile    = "upload.max_file_size"
	keyUploadMaxTotal   = "upload.max_total_size"
	keyUploadMaxFiles   = "upload.max_files"

	keySessionExpiry  = "session.expiry"
	keySessionWorkers = "session.workers"
	keySessionQueue   = "session.queue_size"
	keySessionK       = "session.retrieval_k"

	keyHTTPAddr    = "server.http_addr"
	keyAuditDBPath = "audit.db_path"
	keyVerbose     = "log.verbose"
)

// envPrefix prefixes environment overrides: llm.model is RAGDESK_LLM_MODEL.
const envPrefix = "RAGDESK_"

// Provider credentials read from their conventional variables.
//
//nolint:gosec // G101: environment variable names.
const (
	envOpenAIKey   = "OPENAI_API_KEY"
	envWeaviateKey = "WEAVIATE_API_KEY"
	envRedisPass   = "REDIS_PASSWORD"
)

// SettingsService resolves settings from the config store, with
// environment variables taking precedence.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:           s.getString(keyEmbedBaseURL, ""),
			APIKey:            s.getSecret(keyEmbedAPIKey, envOpenAIKey),
			BatchSize:         s.getInt(keyEmbedBatchSize, d.Embedding.BatchSize),
			RequestsPerSecond: s.getFloat(keyEmbedRPS, d.Embedding.RequestsPerSecond),
		},
		LLM: domain.LLMSettings{
			Provider:    s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:       s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:     s.getString(keyLLMBaseURL, ""),
			APIKey:      s.getSecret(keyLLMAPIKey, envOpenAIKey),
			Temperature: s.getFloat(keyLLMTemperature, d.LLM.Temperature),
			MaxTokens:   s.getInt(keyLLMMaxTokens, d.LLM.MaxTokens),
			Timeout:     s.getDuration(keyLLMTimeout, d.LLM.Timeout),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend:         domain.VectorBackend(s.getString(keyVectorBackend, string(d.VectorIndex.Backend))),
			Host:            s.getString(keyVectorHost, d.VectorIndex.Host),
			Scheme:          s.getString(keyVectorScheme, d.VectorIndex.Scheme),
			APIKey:          s.getSecret(keyVectorAPIKey, envWeaviateKey),
			IndexName:       s.getString(keyVectorIndexName, d.VectorIndex.IndexName),
			Namespace:       s.getString(keyVectorNamespace, d.VectorIndex.Namespace),
			UpsertBatchSize: s.getInt(keyVectorUpsertBatch, d.VectorIndex.UpsertBatchSize),
			SettleDelay:     s.getDuration(keyVectorSettleDelay, d.VectorIndex.SettleDelay),
			SettleTimeout:   s.getDuration(keyVectorSettleTimeout, d.VectorIndex.SettleTimeout),
		},
		Cache: domain.CacheSettings{
			Backend:  domain.CacheBackend(s.getString(keyCacheBackend, string(d.Cache.Backend))),
			Address:  s.getString(keyCacheAddress, d.Cache.Address),
			Password: s.getSecret(keyCachePassword, envRedisPass),
			DB:       s.getInt(keyCacheDB, d.Cache.DB),
			TTL:      s.getDuration(keyCacheTTL, d.Cache.TTL),
		},
		Chunking: domain.ChunkingSettings{
			Size:    s.getInt(keyChunkSize, d.Chunking.Size),
			Overlap: s.getInt(keyChunkOverlap, d.Chunking.Overlap),
		},
		Upload: domain.UploadSettings{
			Dir:               s.getString(keyUploadDir, d.Upload.Dir),
			AllowedExtensions: s.getStringSlice(keyUploadExtensions, d.Upload.AllowedExtensions),
			MaxFileSize:       int64(s.getInt(keyUploadMaxFile, int(d.Upload.MaxFileSize))),
			MaxTotalSize:      int64(s.getInt(keyUploadMaxTotal, int(d.Upload.MaxTotalSize))),
			MaxFiles:          s.getInt(keyUploadMaxFiles, d.Upload.MaxFiles),
		},
		Session: domain.SessionSettings{
			Expiry:     s.getDuration(keySessionExpiry, d.Session.Expiry),
			Workers:    s.getInt(keySessionWorkers, d.Session.Workers),
			QueueSize:  s.getInt(keySessionQueue, d.Session.QueueSize),
			RetrievalK: s.getInt(keySessionK, d.Session.RetrievalK),
		},
		HTTPAddr:    s.getString(keyHTTPAddr, d.HTTPAddr),
		AuditDBPath: s.getString(keyAuditDBPath, d.AuditDBPath),
		Verbose:     s.getBool(keyVerbose, d.Verbose),
	}

	return settings, nil
}

// Set persists a single configuration key.
func (s *SettingsService) Set(key string, value any) error {
	if err := s.configStore.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Helper methods for reading config with defaults. An environment
// override wins over the stored value.

func envKey(key string) string {
	return envPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (s *SettingsService) env(key string) (string, bool) {
	v, ok := s.lookupEnv(envKey(key))
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (s *SettingsService) getString(key, defaultVal string) string {
	if v, ok := s.env(key); ok {
		return v
	}
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getSecret falls back to a conventional variable such as OPENAI_API_KEY.
func (s *SettingsService) getSecret(key, fallbackEnv string) string {
	if v := s.getString(key, ""); v != "" {
		return v
	}
	v, _ := s.lookupEnv(fallbackEnv)
	return v
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v, ok := s.env(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if v, ok := s.env(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if v, ok := s.env(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if v, ok := s.env(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	val := s.configStore.GetDuration(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if v, ok := s.env(key); ok {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, strings.ToLower(p))
			}
		}
		return out
	}
	val := s.configStore.GetStringSlice(key)
	if len(val) == 0 {
		return append([]string(nil), defaultVal...)
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.getString(key, "")
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}
