// Package collab defines the external collaborator boundaries summarised in
// spec §6: a text-completion service for consolidation (M) and an embedding
// service for vector fields (G/H). The core only depends on these
// interfaces; network clients for real providers are out of scope (spec
// §1's "LLM provider network clients" Non-goal) and only mocks ship here.
package collab

import "context"

// Usage holds token accounting for a single completion, when the underlying
// service reports it. Zero values mean "not reported".
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries the two prompts a consolidation strategy sends
// to the text-completion collaborator: a system prompt describing the task
// and a user prompt carrying the formatted episode batch.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
}

// CompletionResponse is the collaborator's reply.
type CompletionResponse struct {
	Content string
	Usage   Usage
}

// TextCompleter is the text-completion collaborator boundary (spec §6):
// "a capability that maps a system prompt and a user prompt to a text
// response plus optional token usage." Implementations must be safe for
// concurrent use and must respect ctx cancellation.
type TextCompleter interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
