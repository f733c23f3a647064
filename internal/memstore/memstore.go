// Package memstore durably persists internal/memory.Episode records onto
// internal/storage's episode family (spec §4.1/§4.8, component H), bridging
// the in-process AgentMemory store to the on-disk engine.
package memstore

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/qilbeedb/qilbeedb/internal/memory"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/storage"
	"github.com/qilbeedb/qilbeedb/internal/temporal"
)

// Store durably persists episodes for a single graph. EmbeddingDimension, if
// non-zero, is enforced against every stored episode's embedding: a
// mismatched dimension is rejected rather than silently truncated or
// zero-padded.
type Store struct {
	engine            *storage.Engine
	graphID           uint64
	embeddingDimension int
}

// Open binds a durable episode store to engine/graphID. embeddingDimension
// of 0 disables the fixed-dimension check.
func Open(engine *storage.Engine, graphID uint64, embeddingDimension int) *Store {
	return &Store{engine: engine, graphID: graphID, embeddingDimension: embeddingDimension}
}

// Put validates and persists ep, upserting by episode id.
func (s *Store) Put(ep *memory.Episode) error {
	if s.embeddingDimension > 0 && ep.Content.Embedding != nil && len(ep.Content.Embedding) != s.embeddingDimension {
		return qerrors.Wrap("memstore.Put", fmt.Errorf("%w: embedding has dimension %d, expected %d",
			qerrors.ErrValidation, len(ep.Content.Embedding), s.embeddingDimension))
	}
	return s.engine.PutEpisode(s.graphID, toStored(ep))
}

// Get resolves an episode by id, returning nil if it does not exist or has
// been invalidated.
func (s *Store) Get(id uuid.UUID) (*memory.Episode, error) {
	stored, err := s.engine.GetEpisodeByID(s.graphID, id)
	if err != nil {
		return nil, qerrors.Wrap("memstore.Get", err)
	}
	if stored == nil || stored.InvalidatedAtMs != nil {
		return nil, nil
	}
	return fromStored(stored), nil
}

// GetAll returns every valid episode for agentID in ascending event-time
// order.
func (s *Store) GetAll(agentID string) ([]*memory.Episode, error) {
	var out []*memory.Episode
	err := s.engine.ScanEpisodesByAgent(s.graphID, agentID, func(stored *storage.StoredEpisode) error {
		if stored.InvalidatedAtMs == nil {
			out = append(out, fromStored(stored))
		}
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("memstore.GetAll", err)
	}
	return out, nil
}

// Range returns every valid episode for agentID whose event-time falls in
// [startMs, endMs].
func (s *Store) Range(agentID string, startMs, endMs int64) ([]*memory.Episode, error) {
	var out []*memory.Episode
	err := s.engine.ScanEpisodesByAgent(s.graphID, agentID, func(stored *storage.StoredEpisode) error {
		if stored.InvalidatedAtMs != nil {
			return nil
		}
		if stored.EventTimeMs < startMs || stored.EventTimeMs > endMs {
			return nil
		}
		out = append(out, fromStored(stored))
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("memstore.Range", err)
	}
	return out, nil
}

// Count returns the number of episodes stored for agentID, including
// invalidated ones.
func (s *Store) Count(agentID string) (int, error) {
	n, err := s.engine.CountForAgent(s.graphID, agentID)
	if err != nil {
		return 0, qerrors.Wrap("memstore.Count", err)
	}
	return n, nil
}

// DeleteOne removes a single episode by id.
func (s *Store) DeleteOne(id uuid.UUID) error {
	return qerrors.Wrap("memstore.DeleteOne", s.engine.DeleteEpisodeByID(s.graphID, id))
}

// DeleteAll removes every episode belonging to agentID.
func (s *Store) DeleteAll(agentID string) error {
	return qerrors.Wrap("memstore.DeleteAll", s.engine.DeleteAllForAgent(s.graphID, agentID))
}

// Update loads id, applies mutate, and re-persists it. Returns
// qerrors.ErrNotFound if id does not exist or has been invalidated.
func (s *Store) Update(id uuid.UUID, mutate func(*memory.Episode)) error {
	ep, err := s.Get(id)
	if err != nil {
		return err
	}
	if ep == nil {
		return qerrors.Wrap("memstore.Update", qerrors.ErrNotFound)
	}
	mutate(ep)
	return s.Put(ep)
}

func toStored(ep *memory.Episode) *storage.StoredEpisode {
	var invalidatedAt *int64
	if ep.Record.IsInvalidated() {
		ms := ep.Record.InvalidatedAt.Millis()
		invalidatedAt = &ms
	}
	return &storage.StoredEpisode{
		ID: ep.ID, AgentID: ep.AgentID, Kind: string(ep.Kind),
		EventTimeMs: ep.Record.EventTime.Millis(), TransactionTimeMs: ep.Record.TransactionTime.Millis(),
		InvalidatedAtMs: invalidatedAt,
		Primary:         ep.Content.Primary, Secondary: ep.Content.Secondary, Context: ep.Content.Context,
		Structured: ep.Content.Structured, Embedding: ep.Content.Embedding, Metadata: ep.Metadata,
		RelevanceScore: ep.Relevance.Score, AccessCount: ep.Relevance.AccessCount, LastAccessMs: ep.Relevance.LastAccess,
		Consolidated: ep.Consolidated,
	}
}

func fromStored(stored *storage.StoredEpisode) *memory.Episode {
	ep := &memory.Episode{
		ID: stored.ID, AgentID: stored.AgentID, Kind: memory.Kind(stored.Kind),
		Content: memory.Content{
			Primary: stored.Primary, Secondary: stored.Secondary, Context: stored.Context,
			Structured: stored.Structured, Embedding: stored.Embedding,
		},
		Metadata: stored.Metadata,
		Relevance: memory.Relevance{
			Score: stored.RelevanceScore, AccessCount: stored.AccessCount, LastAccess: stored.LastAccessMs,
		},
		Consolidated: stored.Consolidated,
	}
	ep.Record.EventTime = temporal.EventTimeFromMillis(stored.EventTimeMs)
	ep.Record.TransactionTime = temporal.TxTimeFromMillis(stored.TransactionTimeMs)
	if stored.InvalidatedAtMs != nil {
		invalidated := temporal.TxTimeFromMillis(*stored.InvalidatedAtMs)
		ep.Record.InvalidatedAt = &invalidated
	}
	return ep
}
