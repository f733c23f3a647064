// Package memory implements the agent-memory layer of spec §3.4/§4.8
// (component G): per-agent episode storage with relevance decay, capacity
// eviction, and recency/kind/range/substring queries.
package memory

import (
	"math"
	"time"

	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/temporal"
)

// Kind classifies an episode's nature.
type Kind string

const (
	KindConversation   Kind = "conversation"
	KindTaskExecution  Kind = "task_execution"
	KindObservation    Kind = "observation"
	KindDecision       Kind = "decision"
	KindError          Kind = "error"
)

// Content holds an episode's textual and structured payload.
type Content struct {
	Primary   string
	Secondary string
	Context   string
	Structured *property.Value
	Embedding  []float32
}

// Relevance is a per-episode score in [0, 1] with access-boost and
// exponential time-decay (spec §3.4).
type Relevance struct {
	Score       float64
	AccessCount uint64
	LastAccess  int64 // ms since epoch
}

// Decay applies exp(-rate * hoursSinceLastAccess) to Score, in place.
func (r *Relevance) Decay(rate float64, now time.Time) {
	hours := float64(now.UnixMilli()-r.LastAccess) / 3_600_000
	if hours < 0 {
		hours = 0
	}
	r.Score *= math.Exp(-rate * hours)
}

// Access bumps the counter, refreshes LastAccess to now, and raises Score by
// 0.1 capped at 1.0.
func (r *Relevance) Access(now time.Time) {
	r.AccessCount++
	r.LastAccess = now.UnixMilli()
	r.Score += 0.1
	if r.Score > 1.0 {
		r.Score = 1.0
	}
}

// Episode is a single unit of an agent's recorded experience (spec §3.4).
type Episode struct {
	ID       [16]byte
	AgentID  string
	Kind     Kind
	Record   temporal.Record
	Content  Content
	Metadata map[string]string
	Relevance   Relevance
	Consolidated bool
}

// IsValid reports whether the episode has not been invalidated.
func (e *Episode) IsValid() bool { return !e.Record.IsInvalidated() }
