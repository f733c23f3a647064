package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/temporal"
)

// AgentMemory is one agent's in-process episode store: a map bounded by
// MaxEpisodes, guarded by a many-reader/single-writer lock (spec §5) since
// decay and forget mutate every entry while queries only read.
type AgentMemory struct {
	agentID     string
	maxEpisodes int

	mu       sync.RWMutex
	episodes map[[16]byte]*Episode
}

// NewAgentMemory constructs an empty store bounded by maxEpisodes. A
// non-positive maxEpisodes means unbounded.
func NewAgentMemory(agentID string, maxEpisodes int) *AgentMemory {
	return &AgentMemory{
		agentID:     agentID,
		maxEpisodes: maxEpisodes,
		episodes:    make(map[[16]byte]*Episode),
	}
}

// Insert stores ep, evicting the lowest-relevance valid episode (by
// invalidation, ties broken arbitrarily) if the store is at capacity.
func (m *AgentMemory) Insert(ep *Episode) error {
	if ep.AgentID != m.agentID {
		return qerrors.Wrap("memory.Insert", qerrors.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.episodes[ep.ID]; !exists && m.maxEpisodes > 0 && len(m.episodes) >= m.maxEpisodes {
		m.evictLockedLowest()
	}
	m.episodes[ep.ID] = ep
	return nil
}

// evictLockedLowest invalidates the lowest-relevance currently-valid episode.
// Caller must hold mu for writing.
func (m *AgentMemory) evictLockedLowest() {
	var target *Episode
	for _, ep := range m.episodes {
		if !ep.IsValid() {
			continue
		}
		if target == nil || ep.Relevance.Score < target.Relevance.Score {
			target = ep
		}
	}
	if target != nil {
		target.Record.Invalidate(temporal.NowTxTime())
	}
}

// Get returns the episode by id, or nil if absent or invalidated.
func (m *AgentMemory) Get(id [16]byte) *Episode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ep := m.episodes[id]
	if ep == nil || !ep.IsValid() {
		return nil
	}
	return ep
}

// Access records a read against the episode, boosting its relevance.
func (m *AgentMemory) Access(id [16]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ep := m.episodes[id]
	if ep == nil || !ep.IsValid() {
		return
	}
	ep.Relevance.Access(time.Now())
}

// Invalidate marks id as invalidated; future queries exclude it.
func (m *AgentMemory) Invalidate(id [16]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ep := m.episodes[id]; ep != nil {
		ep.Record.Invalidate(temporal.NowTxTime())
	}
}

// Decay applies rate-based exponential decay to every valid episode's score.
func (m *AgentMemory) Decay(rate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, ep := range m.episodes {
		if ep.IsValid() {
			ep.Relevance.Decay(rate, now)
		}
	}
}

// Forget removes (invalidates) every valid episode whose score is below
// minRelevance, returning the count removed.
func (m *AgentMemory) Forget(minRelevance float64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := temporal.NowTxTime()
	n := 0
	for _, ep := range m.episodes {
		if ep.IsValid() && ep.Relevance.Score < minRelevance {
			ep.Record.Invalidate(tx)
			n++
		}
	}
	return n
}

// Recent returns up to n valid episodes ordered by descending event-time.
func (m *AgentMemory) Recent(n int) []*Episode {
	all := m.validSnapshot()
	sort.Slice(all, func(i, j int) bool {
		return all[i].Record.EventTime.After(all[j].Record.EventTime)
	})
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// ByKind returns every valid episode of the given kind.
func (m *AgentMemory) ByKind(kind Kind) []*Episode {
	all := m.validSnapshot()
	out := all[:0]
	for _, ep := range all {
		if ep.Kind == kind {
			out = append(out, ep)
		}
	}
	return out
}

// TimeRange returns every valid episode whose event-time falls in [start, end].
func (m *AgentMemory) TimeRange(start, end temporal.EventTime) []*Episode {
	all := m.validSnapshot()
	out := all[:0]
	for _, ep := range all {
		if ep.Record.EventInRange(start, end) {
			out = append(out, ep)
		}
	}
	return out
}

// Search does a case-folded substring match across primary and secondary
// content of every valid episode.
func (m *AgentMemory) Search(substr string) []*Episode {
	needle := strings.ToLower(substr)
	all := m.validSnapshot()
	out := all[:0]
	for _, ep := range all {
		if strings.Contains(strings.ToLower(ep.Content.Primary), needle) ||
			strings.Contains(strings.ToLower(ep.Content.Secondary), needle) {
			out = append(out, ep)
		}
	}
	return out
}

// Len returns the count of stored episodes, including invalidated ones.
func (m *AgentMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.episodes)
}

func (m *AgentMemory) validSnapshot() []*Episode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Episode, 0, len(m.episodes))
	for _, ep := range m.episodes {
		if ep.IsValid() {
			out = append(out, ep)
		}
	}
	return out
}
