package collab

import (
	"context"
	"errors"
	"testing"

	"github.com/qilbeedb/qilbeedb/internal/resilience"
)

type stubCompleter struct {
	resp *CompletionResponse
	err  error
	n    int
}

func (s *stubCompleter) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	s.n++
	return s.resp, s.err
}

func TestBreakerCompleterForwardsOnSuccess(t *testing.T) {
	stub := &stubCompleter{resp: &CompletionResponse{Content: "ok"}}
	bc := WithCircuitBreaker(stub, resilience.CircuitBreakerConfig{Name: "t"})

	resp, err := bc.Complete(context.Background(), CompletionRequest{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "ok" {
		t.Fatalf("expected content %q, got %q", "ok", resp.Content)
	}
	if stub.n != 1 {
		t.Fatalf("expected 1 call, got %d", stub.n)
	}
}

func TestBreakerCompleterOpensAfterRepeatedFailures(t *testing.T) {
	stub := &stubCompleter{err: errors.New("boom")}
	bc := WithCircuitBreaker(stub, resilience.CircuitBreakerConfig{Name: "t", MaxFailures: 2})

	for i := 0; i < 2; i++ {
		if _, err := bc.Complete(context.Background(), CompletionRequest{}); err == nil {
			t.Fatal("expected the stub's error to propagate")
		}
	}
	if bc.State() != resilience.StateOpen {
		t.Fatalf("expected breaker to be open after %d failures, got %v", 2, bc.State())
	}

	if _, err := bc.Complete(context.Background(), CompletionRequest{}); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen once tripped, got %v", err)
	}
	if stub.n != 2 {
		t.Fatalf("expected the stub not to be called once the breaker trips, got %d calls", stub.n)
	}
}

func TestFallbackCompleterFallsThroughOnFailure(t *testing.T) {
	primary := &stubCompleter{err: errors.New("primary down")}
	secondary := &stubCompleter{resp: &CompletionResponse{Content: "from secondary"}}

	fc := NewFallbackCompleter(primary, "primary")
	fc.AddFallback("secondary", secondary)

	resp, err := fc.Complete(context.Background(), CompletionRequest{})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Content != "from secondary" {
		t.Fatalf("expected the fallback's response, got %q", resp.Content)
	}
	if primary.n != 1 || secondary.n != 1 {
		t.Fatalf("expected both entries tried once, got primary=%d secondary=%d", primary.n, secondary.n)
	}
}

func TestFallbackCompleterAllFailed(t *testing.T) {
	primary := &stubCompleter{err: errors.New("down")}
	secondary := &stubCompleter{err: errors.New("also down")}

	fc := NewFallbackCompleter(primary, "primary")
	fc.AddFallback("secondary", secondary)

	if _, err := fc.Complete(context.Background(), CompletionRequest{}); !errors.Is(err, resilience.ErrAllFailed) {
		t.Fatalf("expected ErrAllFailed, got %v", err)
	}
}
