package domain

import (
	"fmt"
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingDimensions maps known embedding models to their vector size.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		"nomic-embed-text":       768,
		"all-minilm":             384,
		"mxbai-embed-large":      1024,
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// BatchSize is the number of texts embedded per request.
	BatchSize int

	// RequestsPerSecond limits calls to the provider. Zero disables limiting.
	RequestsPerSecond float64
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds generative model configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Temperature is kept low so answers stay close to the context.
	Temperature float64

	// MaxTokens bounds the generated answer.
	MaxTokens int

	// Timeout bounds a single generation call.
	Timeout time.Duration
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorBackend selects the vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	VectorBackendMemory   VectorBackend = "memory"
	VectorBackendWeaviate VectorBackend = "weaviate"
)

// VectorIndexSettings holds vector index configuration.
type VectorIndexSettings struct {
	Backend VectorBackend

	// Host, Scheme and APIKey address a remote Weaviate instance.
	Host   string
	Scheme string
	APIKey string

	// IndexName is the index (Weaviate class) holding all records.
	IndexName string

	// Namespace is the prefix of every per-session namespace.
	Namespace string

	// UpsertBatchSize is the number of records written per request.
	UpsertBatchSize int

	// SettleDelay is slept after the final batch when the index cannot
	// report namespace counts.
	SettleDelay time.Duration

	// SettleTimeout bounds polling for the index to reflect an upsert.
	SettleTimeout time.Duration
}

// CacheBackend selects where full chunk text is cached.
type CacheBackend string

// Available cache backends.
const (
	CacheBackendMemory CacheBackend = "memory"
	CacheBackendRedis  CacheBackend = "redis"
)

// CacheSettings holds chunk content cache configuration.
type CacheSettings struct {
	Backend  CacheBackend
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// ChunkingSettings holds text splitting configuration.
type ChunkingSettings struct {
	// Size is the maximum chunk length in characters.
	Size int

	// Overlap is the maximum number of characters shared by adjacent chunks.
	Overlap int
}

// UploadSettings holds upload validation limits.
type UploadSettings struct {
	Dir               string
	AllowedExtensions []string
	MaxFileSize       int64
	MaxTotalSize      int64
	MaxFiles          int
}

// Allowed reports whether a filename has a permitted extension.
func (u UploadSettings) Allowed(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range u.AllowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// SessionSettings holds session lifecycle configuration.
type SessionSettings struct {
	// Expiry is the maximum session age.
	Expiry time.Duration

	// Workers is the number of concurrent processing jobs.
	Workers int

	// QueueSize is the number of jobs that may wait for a worker.
	QueueSize int

	// RetrievalK is the number of passages retrieved per question.
	RetrievalK int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorIndex VectorIndexSettings
	Cache       CacheSettings
	Chunking    ChunkingSettings
	Upload      UploadSettings
	Session     SessionSettings

	// HTTPAddr is the listen address of the HTTP server.
	HTTPAddr string

	// AuditDBPath is the SQLite file for the security audit trail.
	// Empty keeps the audit trail in memory.
	AuditDBPath string

	// Verbose enables debug logging.
	Verbose bool
}

// DefaultAppSettings returns settings with sensible defaults.
// API keys are left empty and must come from the environment.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:  AIProviderOpenAI,
			Model:     "text-embedding-3-small",
			BatchSize: 64,
		},
		LLM: LLMSettings{
			Provider:    AIProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   500,
			Timeout:     30 * time.Second,
		},
		VectorIndex: VectorIndexSettings{
			Backend:         VectorBackendMemory,
			Scheme:          "http",
			IndexName:       "company-chatbot",
			Namespace:       "default",
			UpsertBatchSize: 100,
			SettleDelay:     time.Second,
			SettleTimeout:   10 * time.Second,
		},
		Cache: CacheSettings{
			Backend: CacheBackendMemory,
			TTL:     time.Hour,
		},
		Chunking: ChunkingSettings{
			Size:    400,
			Overlap: 50,
		},
		Upload: UploadSettings{
			Dir:               "uploads",
			AllowedExtensions: []string{".txt", ".pdf", ".docx", ".doc"},
			MaxFileSize:       512 * 1024,
			MaxTotalSize:      2 * 1024 * 1024,
			MaxFiles:          5,
		},
		Session: SessionSettings{
			Expiry:     30 * time.Minute,
			Workers:    4,
			QueueSize:  16,
			RetrievalK: 5,
		},
		HTTPAddr: ":8080",
	}
}

// Validate rejects settings the pipeline cannot run with.
func (s AppSettings) Validate() error {
	if s.Chunking.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidInput, s.Chunking.Size)
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size {
		return fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d",
			ErrInvalidInput, s.Chunking.Size, s.Chunking.Overlap)
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be 0-2, got %f", ErrInvalidInput, s.LLM.Temperature)
	}
	if s.VectorIndex.UpsertBatchSize <= 0 {
		return fmt.Errorf("%w: upsert batch size must be positive", ErrInvalidInput)
	}
	if s.VectorIndex.IndexName == "" {
		return fmt.Errorf("%w: index name is required", ErrInvalidInput)
	}
	switch s.VectorIndex.Backend {
	case VectorBackendMemory:
	case VectorBackendWeaviate:
		if s.VectorIndex.Host == "" {
			return fmt.Errorf("%w: weaviate host is required", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: vector backend %q", ErrUnsupportedType, s.VectorIndex.Backend)
	}
	switch s.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if s.Cache.Address == "" {
			return fmt.Errorf("%w: redis address is required", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: cache backend %q", ErrUnsupportedType, s.Cache.Backend)
	}
	if s.Session.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidInput)
	}
	if s.Upload.MaxFiles <= 0 {
		return fmt.Errorf("%w: max files must be positive", ErrInvalidInput)
	}
	return nil
}
