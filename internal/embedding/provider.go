// Package embedding implements the embedding-provider capability contract
// (spec §4.7): document vs. query embedding, the Qwen/Gemini
// instruction-prefix policy, and graceful degradation via circuit breaking
// and rate limiting when a provider is flaky or slow.
package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// Provider is the capability contract every embedding backend implements.
type Provider interface {
	ID() string
	Model() string
	Dimension() int

	// Embed produces a deterministic document embedding. Never prefixed.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedQuery produces a query embedding, wrapped with the instruction
	// prefix when one is configured (spec §4.7).
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// Backend is the raw, unwrapped vector-producing function a concrete
// provider implementation supplies; NewProvider's wrapper adds the prefix policy,
// circuit breaker, and rate limiter around it.
type Backend func(ctx context.Context, text string) ([]float32, error)

// qwenInstructionPrefix is the empirically-tuned default for Qwen-family
// models (spec §4.7: Hit@1 improves 67%→92% with this prefix).
const qwenInstructionPrefix = "Given a query, retrieve the most semantically relevant document"

// ResolveInstructionPrefix applies spec §4.7's environment-driven policy:
// an explicit override (including the literal "none", meaning no prefix)
// always wins; otherwise "qwen" in the model name defaults to the tuned
// prefix, "gemini" defaults to no prefix, and anything else defaults to none.
func ResolveInstructionPrefix(model string, override *string) *string {
	if override != nil {
		if *override == "none" {
			return nil
		}
		return override
	}
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "qwen"):
		prefix := qwenInstructionPrefix
		return &prefix
	case strings.Contains(lower, "gemini"):
		return nil
	default:
		return nil
	}
}

// wrapped is a Provider built from a raw Backend, adding the instruction
// prefix, a circuit breaker, and a token-bucket rate limiter so a flaky or
// slow provider degrades gracefully instead of blocking the write/search
// path (spec §4.12, §9 embeddings are "opportunistic, never on the critical
// write path").
type wrapped struct {
	id                string
	model             string
	dimension         int
	instructionPrefix *string
	backend           Backend
	breaker           *gobreaker.CircuitBreaker
	limiter           *rate.Limiter
}

// Config parametrizes a wrapped provider.
type Config struct {
	ID                string
	Model             string
	Dimension         int
	InstructionPrefix *string // resolved via ResolveInstructionPrefix
	Backend           Backend

	// RequestsPerSecond bounds outbound calls to the backend; zero disables
	// limiting (sensible for local/offline backends).
	RequestsPerSecond float64
	Burst             int
}

func NewProvider(cfg Config) Provider {
	settings := gobreaker.Settings{
		Name:        "embedding:" + cfg.ID,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &wrapped{
		id:                cfg.ID,
		model:             cfg.Model,
		dimension:         cfg.Dimension,
		instructionPrefix: cfg.InstructionPrefix,
		backend:           cfg.Backend,
		breaker:           gobreaker.NewCircuitBreaker(settings),
		limiter:           limiter,
	}
}

func (w *wrapped) ID() string      { return w.id }
func (w *wrapped) Model() string   { return w.model }
func (w *wrapped) Dimension() int  { return w.dimension }

func (w *wrapped) Embed(ctx context.Context, text string) ([]float32, error) {
	return w.call(ctx, text)
}

func (w *wrapped) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if w.instructionPrefix == nil {
		return w.call(ctx, query)
	}
	prefixed := fmt.Sprintf("Instruct: %s\nQuery: %s", *w.instructionPrefix, query)
	return w.call(ctx, prefixed)
}

func (w *wrapped) call(ctx context.Context, text string) ([]float32, error) {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("embedding: rate limiter: %w", err)
		}
	}

	out, err := w.breaker.Execute(func() (interface{}, error) {
		return w.backend(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: provider %q: %w", w.id, err)
	}
	return out.([]float32), nil
}
