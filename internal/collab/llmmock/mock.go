// Package llmmock provides a test double for collab.TextCompleter, modelled
// on the teacher's pkg/provider/llm/mock.Provider: configurable canned
// responses plus call recording, safe for concurrent use.
package llmmock

import (
	"context"
	"sync"

	"github.com/qilbeedb/qilbeedb/internal/collab"
)

// Call records a single invocation of Complete.
type Call struct {
	Ctx context.Context
	Req collab.CompletionRequest
}

// Completer is a mock implementation of collab.TextCompleter.
type Completer struct {
	mu sync.Mutex

	// Response is returned by Complete. May be nil (returns nil, nil).
	Response *collab.CompletionResponse

	// Err, if non-nil, is returned as the error from Complete instead of
	// Response.
	Err error

	// Responses, if non-empty, is consumed one element per call (in order)
	// instead of the fixed Response field; once exhausted, Complete falls
	// back to Response/Err.
	Responses []collab.CompletionResponse

	// Calls records every invocation in order.
	Calls []Call
}

// Complete records the call and returns the next canned response.
func (c *Completer) Complete(ctx context.Context, req collab.CompletionRequest) (*collab.CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, Call{Ctx: ctx, Req: req})

	if len(c.Responses) > 0 {
		resp := c.Responses[0]
		c.Responses = c.Responses[1:]
		return &resp, nil
	}
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Response, nil
}

// Reset clears recorded calls. Thread-safe.
func (c *Completer) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = nil
}

// Ensure Completer implements collab.TextCompleter at compile time.
var _ collab.TextCompleter = (*Completer)(nil)
