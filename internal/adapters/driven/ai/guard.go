package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/core/ports/driven"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// Breaker defaults. The breaker opens after consecutiveFailures failed
// calls and lets one probe through after breakerTimeout.
const (
	consecutiveFailures = 5
	breakerInterval     = time.Minute
	breakerTimeout      = 30 * time.Second
)

// Ensure guards implement the interfaces.
var (
	_ driven.EmbeddingService = (*GuardedEmbedding)(nil)
	_ driven.LLMService       = (*GuardedLLM)(nil)
)

// guard combines a circuit breaker with an optional rate limiter.
type guard struct {
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	// unavailable is the sentinel wrapped into every failure.
	unavailable error
}

func newGuard(name string, rps float64, unavailable error) *guard {
	g := &guard{
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    breakerInterval,
			Timeout:     breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= consecutiveFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
			},
		}),
		unavailable: unavailable,
	}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return g
}

// run waits for the limiter, then calls fn through the breaker.
func (g *guard) run(ctx context.Context, fn func() (any, error)) (any, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit: %w", g.unavailable, err)
		}
	}
	out, err := g.breaker.Execute(fn)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", g.unavailable, err)
	}
	return out, nil
}

// state reports the breaker state.
func (g *guard) state() gobreaker.State {
	return g.breaker.State()
}

// GuardedEmbedding wraps an EmbeddingService with a breaker and limiter.
type GuardedEmbedding struct {
	inner driven.EmbeddingService
	*guard
}

// NewGuardedEmbedding wraps inner. rps <= 0 disables rate limiting.
func NewGuardedEmbedding(inner driven.EmbeddingService, rps float64) *GuardedEmbedding {
	return &GuardedEmbedding{
		inner: inner,
		guard: newGuard("embedding:"+inner.ModelName(), rps, domain.ErrEmbeddingUnavailable),
	}
}

// Embed embeds one text.
func (g *GuardedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := g.run(ctx, func() (any, error) { return g.inner.Embed(ctx, text) })
	if err != nil {
		return nil, err
	}
	return out.([]float32), nil
}

// EmbedBatch embeds texts in one guarded call.
func (g *GuardedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := g.run(ctx, func() (any, error) { return g.inner.EmbedBatch(ctx, texts) })
	if err != nil {
		return nil, err
	}
	return out.([][]float32), nil
}

// Dimensions returns the inner service's vector size.
func (g *GuardedEmbedding) Dimensions() int { return g.inner.Dimensions() }

// ModelName returns the inner service's model.
func (g *GuardedEmbedding) ModelName() string { return g.inner.ModelName() }

// Ping bypasses the breaker so a health check reflects the provider itself.
func (g *GuardedEmbedding) Ping(ctx context.Context) error { return g.inner.Ping(ctx) }

// Close closes the inner service.
func (g *GuardedEmbedding) Close() error { return g.inner.Close() }

// GuardedLLM wraps an LLMService with a breaker.
type GuardedLLM struct {
	inner driven.LLMService
	*guard
}

// NewGuardedLLM wraps inner. rps <= 0 disables rate limiting.
func NewGuardedLLM(inner driven.LLMService, rps float64) *GuardedLLM {
	return &GuardedLLM{
		inner: inner,
		guard: newGuard("llm:"+inner.ModelName(), rps, domain.ErrLLMUnavailable),
	}
}

// Chat runs one guarded completion.
func (g *GuardedLLM) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	out, err := g.run(ctx, func() (any, error) { return g.inner.Chat(ctx, messages, opts) })
	if err != nil {
		return "", err
	}
	return out.(string), nil
}

// ModelName returns the inner service's model.
func (g *GuardedLLM) ModelName() string { return g.inner.ModelName() }

// Ping bypasses the breaker.
func (g *GuardedLLM) Ping(ctx context.Context) error { return g.inner.Ping(ctx) }

// Close closes the inner service.
func (g *GuardedLLM) Close() error { return g.inner.Close() }
