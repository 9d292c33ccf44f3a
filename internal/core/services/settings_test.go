package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragdesk/internal/core/domain"
)

func newTestSettingsService(env map[string]string) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)
	service.lookupEnv = func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
	return service, store
}

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newTestSettingsService(nil)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding, settings.Embedding)
	assert.Equal(t, defaults.LLM, settings.LLM)
	assert.Equal(t, defaults.VectorIndex, settings.VectorIndex)
	assert.Equal(t, defaults.Chunking, settings.Chunking)
	assert.Equal(t, defaults.Upload, settings.Upload)
	assert.Equal(t, defaults.Session, settings.Session)
	assert.Equal(t, defaults.HTTPAddr, settings.HTTPAddr)
	assert.False(t, settings.Verbose)
	require.NoError(t, settings.Validate())
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, store := newTestSettingsService(nil)
	_ = store.Set("embedding.provider", "ollama")
	_ = store.Set("embedding.model", "nomic-embed-text")
	_ = store.Set("llm.temperature", 0.0)
	_ = store.Set("llm.timeout", "45s")
	_ = store.Set("vector_index.backend", "weaviate")
	_ = store.Set("vector_index.host", "localhost:8081")
	_ = store.Set("chunking.size", 800)
	_ = store.Set("upload.allowed_extensions", []any{".txt"})
	_ = store.Set("log.verbose", true)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
	assert.Zero(t, settings.LLM.Temperature)
	assert.Equal(t, 45*time.Second, settings.LLM.Timeout)
	assert.Equal(t, domain.VectorBackendWeaviate, settings.VectorIndex.Backend)
	assert.Equal(t, "localhost:8081", settings.VectorIndex.Host)
	assert.Equal(t, 800, settings.Chunking.Size)
	assert.Equal(t, []string{".txt"}, settings.Upload.AllowedExtensions)
	assert.True(t, settings.Verbose)
}

func TestSettingsService_Get_InvalidProviderReturnsDefault(t *testing.T) {
	service, store := newTestSettingsService(nil)
	_ = store.Set("llm.provider", "invalid_provider")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings().LLM.Provider, settings.LLM.Provider)
}

func TestSettingsService_Get_EnvironmentOverridesStore(t *testing.T) {
	service, store := newTestSettingsService(map[string]string{
		"RAGDESK_LLM_MODEL":                 "gpt-4o",
		"RAGDESK_CHUNKING_OVERLAP":          "20",
		"RAGDESK_LLM_TEMPERATURE":           "0.7",
		"RAGDESK_SESSION_EXPIRY":            "5m",
		"RAGDESK_LOG_VERBOSE":               "true",
		"RAGDESK_UPLOAD_ALLOWED_EXTENSIONS": ".TXT, .pdf,",
	})
	_ = store.Set("llm.model", "gpt-3.5-turbo")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", settings.LLM.Model)
	assert.Equal(t, 20, settings.Chunking.Overlap)
	assert.InDelta(t, 0.7, settings.LLM.Temperature, 1e-9)
	assert.Equal(t, 5*time.Minute, settings.Session.Expiry)
	assert.True(t, settings.Verbose)
	assert.Equal(t, []string{".txt", ".pdf"}, settings.Upload.AllowedExtensions)
}

func TestSettingsService_Get_MalformedEnvironmentIgnored(t *testing.T) {
	service, store := newTestSettingsService(map[string]string{
		"RAGDESK_CHUNKING_SIZE": "lots",
		"RAGDESK_LLM_TIMEOUT":   "soon",
	})
	_ = store.Set("chunking.size", 600)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, 600, settings.Chunking.Size)
	assert.Equal(t, domain.DefaultAppSettings().LLM.Timeout, settings.LLM.Timeout)
}

func TestSettingsService_Get_SecretsFallBackToConventionalVariables(t *testing.T) {
	service, _ := newTestSettingsService(map[string]string{
		"OPENAI_API_KEY":   "sk-test",
		"WEAVIATE_API_KEY": "wv-test",
		"REDIS_PASSWORD":   "hunter2",
	})

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-test", settings.Embedding.APIKey)
	assert.Equal(t, "sk-test", settings.LLM.APIKey)
	assert.Equal(t, "wv-test", settings.VectorIndex.APIKey)
	assert.Equal(t, "hunter2", settings.Cache.Password)
}

func TestSettingsService_Get_StoredSecretWins(t *testing.T) {
	service, store := newTestSettingsService(map[string]string{"OPENAI_API_KEY": "sk-env"})
	_ = store.Set("llm.api_key", "sk-file")

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "sk-file", settings.LLM.APIKey)
	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
}

func TestSettingsService_Set(t *testing.T) {
	service, store := newTestSettingsService(nil)

	require.NoError(t, service.Set("llm.model", "llama3"))

	assert.Equal(t, "llama3", store.GetString("llm.model"))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "RAGDESK_VECTOR_INDEX_UPSERT_BATCH_SIZE", envKey("vector_index.upsert_batch_size"))
}
