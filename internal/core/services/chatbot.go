package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Fixed chatbot replies.
const (
	NoContextResponse = "I couldn't find relevant information in the uploaded documents. " +
		"Please make sure you've uploaded the appropriate company documents."
	TechnicalDifficultyResponse = "I'm experiencing technical difficulties. Please try again later."
)

// Conversation bounds.
const (
	HistoryLimit       = 10
	PromptHistoryTurns = 3
	DefaultRetrievalK  = 5
)

const unknownSource = "Unknown"

const systemInstruction = "You are a helpful company assistant. Only answer based on the provided context. " +
	"If the information is not in the context, say so clearly."

// Retriever returns the passages most relevant to a query, best first.
type Retriever interface {
	Search(ctx context.Context, query string, k int) []domain.Passage
}

// Responder answers a single query.
type Responder interface {
	Respond(ctx context.Context, query string, k int) domain.ChatResponse
}

// ChatbotConfig controls generation.
type ChatbotConfig struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// ChatbotConfigFrom derives generation settings from LLM settings.
func ChatbotConfigFrom(s domain.LLMSettings) ChatbotConfig {
	return ChatbotConfig{
		Temperature: s.Temperature,
		MaxTokens:   s.MaxTokens,
		Timeout:     s.Timeout,
	}
}

// Ensure RAGChatbot implements Responder.
var _ Responder = (*RAGChatbot)(nil)

// RAGChatbot answers questions from retrieved passages and keeps a
// bounded conversation history. It is safe for concurrent use.
type RAGChatbot struct {
	retriever Retriever
	llm       driven.LLMService
	cfg       ChatbotConfig
	now       func() time.Time

	mu      sync.Mutex
	history []domain.ConversationTurn
}

// NewRAGChatbot creates a chatbot over a retriever and a language model.
func NewRAGChatbot(retriever Retriever, llm driven.LLMService, cfg ChatbotConfig) *RAGChatbot {
	defaults := domain.DefaultAppSettings().LLM
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	return &RAGChatbot{
		retriever: retriever,
		llm:       llm,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Respond retrieves up to k passages and generates an answer grounded in
// them. It never fails: retrieval misses and generation errors produce
// fixed replies with zero confidence.
func (c *RAGChatbot) Respond(ctx context.Context, query string, k int) domain.ChatResponse {
	if k <= 0 {
		k = DefaultRetrievalK
	}
	queryID := NewQueryID()
	logger.Info("Query [%s]: %d chars", queryID, len([]rune(query)))

	passages := c.retriever.Search(ctx, query, k)
	if len(passages) == 0 {
		return domain.ChatResponse{
			Response:  NoContextResponse,
			Sources:   []string{},
			QueryID:   queryID,
			Timestamp: c.now().UTC(),
		}
	}

	sources := distinctSources(passages)
	confidence := passages[0].Score

	answer, err := c.generate(ctx, query, passages)
	if err != nil {
		logger.Error("Error generating response [%s]: %v", queryID, err)
		return domain.ChatResponse{
			Response:  TechnicalDifficultyResponse,
			Sources:   []string{},
			QueryID:   queryID,
			Timestamp: c.now().UTC(),
		}
	}

	c.remember(query, answer)
	logger.Info("Response [%s]: generated from %d passages", queryID, len(passages))

	return domain.ChatResponse{
		Response:   answer,
		Sources:    sources,
		Confidence: confidence,
		QueryID:    queryID,
		Timestamp:  c.now().UTC(),
	}
}

func (c *RAGChatbot) generate(ctx context.Context, query string, passages []domain.Passage) (string, error) {
	if c.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: systemInstruction},
		{Role: driven.RoleUser, Content: c.buildPrompt(query, passages)},
	}
	answer, err := c.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrLLMUnavailable)
	}
	return answer, nil
}

func (c *RAGChatbot) buildPrompt(query string, passages []domain.Passage) string {
	var b strings.Builder

	b.WriteString("You are a helpful company assistant. Your role is to provide accurate, compliant information ")
	b.WriteString("based solely on the company's official documentation provided below.\n\n")
	b.WriteString("IMPORTANT INSTRUCTIONS:\n")
	b.WriteString("1. Only answer based on the provided context\n")
	b.WriteString("2. If the answer is not in the context, say \"I don't have that information in the uploaded documents\"\n")
	b.WriteString("3. Be friendly but professional\n")
	b.WriteString("4. Never make up information\n")
	b.WriteString("5. For sensitive topics, remind customers to visit a branch or call customer service\n")
	b.WriteString("6. Use simple, clear language\n")
	b.WriteString("7. Consider the conversation history when relevant\n\n")

	if recent := c.recentTurns(PromptHistoryTurns); len(recent) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "Customer: %s\nAssistant: %s\n", turn.Query, turn.Response)
		}
		b.WriteString("\n")
	}

	b.WriteString("CONTEXT FROM COMPANY DOCUMENTATION:\n")
	for i, p := range passages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		docType := p.Chunk.DocType.String()
		if docType == "" {
			docType = "unknown"
		}
		fmt.Fprintf(&b, "[Source: %s]\n%s", docType, p.Chunk.Content)
	}

	fmt.Fprintf(&b, "\n\nCURRENT CUSTOMER QUESTION: %s\n\nRESPONSE:", query)
	return b.String()
}

func (c *RAGChatbot) remember(query, answer string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, domain.ConversationTurn{
		Timestamp: c.now().UTC(),
		Query:     query,
		Response:  answer,
	})
	if over := len(c.history) - HistoryLimit; over > 0 {
		c.history = append([]domain.ConversationTurn(nil), c.history[over:]...)
	}
}

func (c *RAGChatbot) recentTurns(n int) []domain.ConversationTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := max(len(c.history)-n, 0)
	return append([]domain.ConversationTurn(nil), c.history[start:]...)
}

// History returns a copy of the retained conversation, oldest first.
func (c *RAGChatbot) History() []domain.ConversationTurn {
	return c.recentTurns(HistoryLimit)
}

// distinctSources lists passage sources in first-seen order.
func distinctSources(passages []domain.Passage) []string {
	seen := make(map[string]bool, len(passages))
	sources := make([]string, 0, len(passages))
	for _, p := range passages {
		src := p.Chunk.Source
		if src == "" {
			src = unknownSource
		}
		if !seen[src] {
			seen[src] = true
			sources = append(sources, src)
		}
	}
	return sources
}

// NewQueryID returns a short identifier for correlating a query in logs.
func NewQueryID() string {
	return uuid.NewString()[:8]
}
