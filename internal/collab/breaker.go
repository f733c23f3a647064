package collab

import (
	"context"

	"github.com/qilbeedb/qilbeedb/internal/resilience"
)

// BreakerCompleter wraps a TextCompleter with a circuit breaker so that a
// consolidation pass (component M) stops hammering a failing collaborator
// and fails fast instead of blocking every agent's consolidation on the
// same dead provider.
type BreakerCompleter struct {
	next    TextCompleter
	breaker *resilience.CircuitBreaker
}

// WithCircuitBreaker wraps next with a breaker configured by cfg. A zero
// cfg applies the breaker's own defaults (5 consecutive failures, 30s reset,
// 3 half-open probes).
func WithCircuitBreaker(next TextCompleter, cfg resilience.CircuitBreakerConfig) *BreakerCompleter {
	if cfg.Name == "" {
		cfg.Name = "collab.TextCompleter"
	}
	return &BreakerCompleter{next: next, breaker: resilience.NewCircuitBreaker(cfg)}
}

// Complete forwards to the wrapped completer through the circuit breaker.
// When the breaker is open, the error wraps resilience.ErrCircuitOpen.
func (b *BreakerCompleter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	var resp *CompletionResponse
	err := b.breaker.Execute(func() error {
		var callErr error
		resp, callErr = b.next.Complete(ctx, req)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// State reports the breaker's current state, for health reporting.
func (b *BreakerCompleter) State() resilience.State { return b.breaker.State() }

// FallbackCompleter tries a primary TextCompleter first, falling through to
// registered fallbacks (in registration order) when the primary's circuit
// breaker is open or its call fails. Use this when a deployment wires more
// than one collaborator via WithLLMFallback.
type FallbackCompleter struct {
	group *resilience.FallbackGroup[TextCompleter]
}

// NewFallbackCompleter creates a FallbackCompleter with primary as the
// preferred collaborator.
func NewFallbackCompleter(primary TextCompleter, primaryName string) *FallbackCompleter {
	return &FallbackCompleter{
		group: resilience.NewFallbackGroup(primary, primaryName, resilience.FallbackConfig{}),
	}
}

// AddFallback registers an additional collaborator, tried only once every
// higher-priority entry has failed or tripped its breaker.
func (f *FallbackCompleter) AddFallback(name string, fallback TextCompleter) {
	f.group.AddFallback(name, fallback)
}

// Complete tries each registered collaborator in priority order.
func (f *FallbackCompleter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return resilience.ExecuteWithResult(f.group, func(c TextCompleter) (*CompletionResponse, error) {
		return c.Complete(ctx, req)
	})
}
