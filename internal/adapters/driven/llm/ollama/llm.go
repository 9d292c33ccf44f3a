// Package ollama answers chat requests with a local Ollama model.
package ollama

import (
	"context"
	"strings"
	"time"

	"github.com/custodia-labs/ragdesk/internal/adapters/driven/ollamaapi"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = ollamaapi.DefaultBaseURL
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the Ollama LLM service.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService sends non-streaming /api/chat requests.
type LLMService struct {
	client *ollamaapi.Client
	model  string
}

type generationOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string             `json:"model"`
	Messages []chatMessage      `json:"messages"`
	Stream   bool               `json:"stream"`
	Options  *generationOptions `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// NewLLMService creates an Ollama LLM service, filling unset fields with defaults.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{
		client: ollamaapi.New(cfg.BaseURL, cfg.Timeout),
		model:  cfg.Model,
	}
}

// Chat returns the model's reply to the conversation, trimmed of
// surrounding whitespace. Temperature is always sent so that 0 is honoured.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := chatRequest{
		Model:    s.model,
		Messages: make([]chatMessage, 0, len(messages)),
		Options: &generationOptions{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
		},
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}

	var resp chatResponse
	if err := s.client.Post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// ModelName returns the configured model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks that the Ollama instance answers.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close is a no-op; the HTTP client holds no resources needing release.
func (s *LLMService) Close() error {
	return nil
}
