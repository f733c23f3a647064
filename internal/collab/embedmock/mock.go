// Package embedmock provides a test double for collab.Embedder, modelled on
// the teacher's pkg/provider/embeddings/mock.Provider.
package embedmock

import (
	"context"
	"sync"

	"github.com/qilbeedb/qilbeedb/internal/collab"
)

// EmbedCall records a single invocation of Embed.
type EmbedCall struct {
	Ctx  context.Context
	Text string
}

// EmbedBatchCall records a single invocation of EmbedBatch.
type EmbedBatchCall struct {
	Ctx   context.Context
	Texts []string
}

// Embedder is a mock implementation of collab.Embedder.
type Embedder struct {
	mu sync.Mutex

	// Vector is returned by Embed. If nil, a zero-length slice is returned.
	Vector []float32

	// Err, if non-nil, is returned as the error from Embed and EmbedBatch.
	Err error

	// BatchResult is returned by EmbedBatch. If nil, each input text gets a
	// copy of Vector.
	BatchResult [][]float32

	// DimensionsValue is returned by Dimensions.
	DimensionsValue int

	EmbedCalls      []EmbedCall
	EmbedBatchCalls []EmbedBatchCall
}

// Embed records the call and returns Vector, Err.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.EmbedCalls = append(e.EmbedCalls, EmbedCall{Ctx: ctx, Text: text})
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Vector, nil
}

// EmbedBatch records the call and returns BatchResult, Err.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make([]string, len(texts))
	copy(cp, texts)
	e.EmbedBatchCalls = append(e.EmbedBatchCalls, EmbedBatchCall{Ctx: ctx, Texts: cp})
	if e.Err != nil {
		return nil, e.Err
	}
	if e.BatchResult != nil {
		return e.BatchResult, nil
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = e.Vector
	}
	return out, nil
}

// Dimensions returns DimensionsValue.
func (e *Embedder) Dimensions() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.DimensionsValue
}

// Reset clears recorded calls. Thread-safe.
func (e *Embedder) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.EmbedCalls = nil
	e.EmbedBatchCalls = nil
}

// Ensure Embedder implements collab.Embedder at compile time.
var _ collab.Embedder = (*Embedder)(nil)
