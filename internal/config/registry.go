package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/qilbeedb/qilbeedb/internal/collab"
)

// ErrCollaboratorNotRegistered is returned by Create* methods when no
// factory has been registered under the requested collaborator name. Real
// collaborator implementations are out of scope (spec §6); callers register
// their own factories (or one of the mocks) before calling Create*.
var ErrCollaboratorNotRegistered = errors.New("config: collaborator not registered")

// Registry maps collaborator names to their constructor functions, one map
// per boundary named in spec §6. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	llm        map[string]func(CollaboratorEntry) (collab.TextCompleter, error)
	embeddings map[string]func(CollaboratorEntry) (collab.Embedder, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		llm:        make(map[string]func(CollaboratorEntry) (collab.TextCompleter, error)),
		embeddings: make(map[string]func(CollaboratorEntry) (collab.Embedder, error)),
	}
}

// RegisterLLM registers a text-completion collaborator factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterLLM(name string, factory func(CollaboratorEntry) (collab.TextCompleter, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterEmbeddings registers an embedding collaborator factory under name.
func (r *Registry) RegisterEmbeddings(name string, factory func(CollaboratorEntry) (collab.Embedder, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeddings[name] = factory
}

// CreateLLM instantiates a TextCompleter using the factory registered under
// entry.Name. Returns [ErrCollaboratorNotRegistered] if none was registered.
func (r *Registry) CreateLLM(entry CollaboratorEntry) (collab.TextCompleter, error) {
	r.mu.RLock()
	factory, ok := r.llm[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: llm/%q", ErrCollaboratorNotRegistered, entry.Name)
	}
	return factory(entry)
}

// CreateEmbeddings instantiates an Embedder using the factory registered
// under entry.Name. Returns [ErrCollaboratorNotRegistered] if none was
// registered.
func (r *Registry) CreateEmbeddings(entry CollaboratorEntry) (collab.Embedder, error) {
	r.mu.RLock()
	factory, ok := r.embeddings[entry.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: embeddings/%q", ErrCollaboratorNotRegistered, entry.Name)
	}
	return factory(entry)
}
