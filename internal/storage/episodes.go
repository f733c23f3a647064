package storage

import (
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/qilbeedb/qilbeedb/internal/keycodec"
	"github.com/qilbeedb/qilbeedb/internal/property"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// StoredEpisode is the primary record persisted under the episode family
// (spec §3.4/§4.1). internal/memstore translates it to and from the
// domain-level internal/memory.Episode type.
type StoredEpisode struct {
	ID                [16]byte
	AgentID           string
	Kind              string
	EventTimeMs       int64
	TransactionTimeMs int64
	InvalidatedAtMs   *int64

	Primary    string
	Secondary  string
	Context    string
	Structured *property.Value
	Embedding  []float32
	Metadata   map[string]string

	RelevanceScore float64
	AccessCount    uint64
	LastAccessMs   int64
	Consolidated   bool
}

type wireEpisode struct {
	ID                [16]byte          `json:"id"`
	AgentID           string            `json:"agent_id"`
	Kind              string            `json:"kind"`
	EventTimeMs       int64             `json:"event_time_ms"`
	TransactionTimeMs int64             `json:"transaction_time_ms"`
	InvalidatedAtMs   *int64            `json:"invalidated_at_ms,omitempty"`
	Primary           string            `json:"primary"`
	Secondary         string            `json:"secondary,omitempty"`
	Context           string            `json:"context,omitempty"`
	Structured        *property.Value   `json:"structured,omitempty"`
	Embedding         []float32         `json:"embedding,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
	RelevanceScore    float64           `json:"relevance_score"`
	AccessCount       uint64            `json:"access_count"`
	LastAccessMs      int64             `json:"last_access_ms"`
	Consolidated      bool              `json:"consolidated"`
}

func encodeEpisode(ep *StoredEpisode) ([]byte, error) {
	w := wireEpisode{
		ID: ep.ID, AgentID: ep.AgentID, Kind: ep.Kind,
		EventTimeMs: ep.EventTimeMs, TransactionTimeMs: ep.TransactionTimeMs, InvalidatedAtMs: ep.InvalidatedAtMs,
		Primary: ep.Primary, Secondary: ep.Secondary, Context: ep.Context, Structured: ep.Structured,
		Embedding: ep.Embedding, Metadata: ep.Metadata,
		RelevanceScore: ep.RelevanceScore, AccessCount: ep.AccessCount, LastAccessMs: ep.LastAccessMs,
		Consolidated: ep.Consolidated,
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("%w: encode episode: %v", qerrors.ErrSerialization, err)
	}
	return data, nil
}

func decodeEpisode(data []byte) (*StoredEpisode, error) {
	var w wireEpisode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: decode episode: %v", qerrors.ErrCorruption, err)
	}
	return &StoredEpisode{
		ID: w.ID, AgentID: w.AgentID, Kind: w.Kind,
		EventTimeMs: w.EventTimeMs, TransactionTimeMs: w.TransactionTimeMs, InvalidatedAtMs: w.InvalidatedAtMs,
		Primary: w.Primary, Secondary: w.Secondary, Context: w.Context, Structured: w.Structured,
		Embedding: w.Embedding, Metadata: w.Metadata,
		RelevanceScore: w.RelevanceScore, AccessCount: w.AccessCount, LastAccessMs: w.LastAccessMs,
		Consolidated: w.Consolidated,
	}, nil
}

// indexEntry is the JSON value behind an episode-id secondary index key,
// letting GetEpisodeByID/DeleteEpisodeByID recover the primary key's
// variable fields (agentId, eventTimeMs) without a full scan.
type indexEntry struct {
	AgentID     string `json:"agent_id"`
	EventTimeMs int64  `json:"event_time_ms"`
}

// PutEpisode writes (or idempotently overwrites) ep's primary record and its
// episodeId secondary index entry atomically. If ep.ID already exists under
// a different (agentId, eventTimeMs) — its event-time changed — the stale
// primary entry is removed in the same batch.
func (e *Engine) PutEpisode(graphID uint64, ep *StoredEpisode) error {
	return e.runAtomic(func(txn *badger.Txn) error {
		idxKey := keycodec.EpisodeIndexKey(graphID, ep.ID)
		old, found, err := txnGet(txn, idxKey)
		if err != nil {
			return err
		}
		if found {
			var oldIdx indexEntry
			if err := json.Unmarshal(old, &oldIdx); err != nil {
				return fmt.Errorf("%w: decode episode index: %v", qerrors.ErrCorruption, err)
			}
			if oldIdx.AgentID != ep.AgentID || oldIdx.EventTimeMs != ep.EventTimeMs {
				staleKey := keycodec.EpisodeKey(graphID, oldIdx.AgentID, oldIdx.EventTimeMs, ep.ID)
				if err := txn.Delete(staleKey); err != nil {
					return &storageIOErr{err: err}
				}
			}
		}

		data, err := encodeEpisode(ep)
		if err != nil {
			return err
		}
		if err := txn.Set(keycodec.EpisodeKey(graphID, ep.AgentID, ep.EventTimeMs, ep.ID), data); err != nil {
			return &storageIOErr{err: err}
		}

		idxData, err := json.Marshal(indexEntry{AgentID: ep.AgentID, EventTimeMs: ep.EventTimeMs})
		if err != nil {
			return fmt.Errorf("%w: encode episode index: %v", qerrors.ErrSerialization, err)
		}
		if err := txn.Set(idxKey, idxData); err != nil {
			return &storageIOErr{err: err}
		}
		return nil
	})
}

// GetEpisode returns the episode at the given primary key, or (nil, nil) if
// it does not exist.
func (e *Engine) GetEpisode(graphID uint64, agentID string, eventTimeMs int64, episodeID [16]byte) (*StoredEpisode, error) {
	var result *StoredEpisode
	err := e.db.View(func(txn *badger.Txn) error {
		data, found, err := txnGet(txn, keycodec.EpisodeKey(graphID, agentID, eventTimeMs, episodeID))
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		ep, err := decodeEpisode(data)
		if err != nil {
			return err
		}
		result = ep
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("storage.GetEpisode", err)
	}
	return result, nil
}

// GetEpisodeByID resolves episodeID via the secondary index then loads the
// primary record: the two-level lookup pattern of spec §4.2 applied to an
// identifier that doesn't carry its own partition key.
func (e *Engine) GetEpisodeByID(graphID uint64, episodeID [16]byte) (*StoredEpisode, error) {
	var result *StoredEpisode
	err := e.db.View(func(txn *badger.Txn) error {
		idxData, found, err := txnGet(txn, keycodec.EpisodeIndexKey(graphID, episodeID))
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		var idx indexEntry
		if err := json.Unmarshal(idxData, &idx); err != nil {
			return fmt.Errorf("%w: decode episode index: %v", qerrors.ErrCorruption, err)
		}
		data, found, err := txnGet(txn, keycodec.EpisodeKey(graphID, idx.AgentID, idx.EventTimeMs, episodeID))
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		ep, err := decodeEpisode(data)
		if err != nil {
			return err
		}
		result = ep
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("storage.GetEpisodeByID", err)
	}
	return result, nil
}

// DeleteEpisode removes the primary record and its secondary index entry.
func (e *Engine) DeleteEpisode(graphID uint64, agentID string, eventTimeMs int64, episodeID [16]byte) error {
	return e.runAtomic(func(txn *badger.Txn) error {
		if err := txn.Delete(keycodec.EpisodeKey(graphID, agentID, eventTimeMs, episodeID)); err != nil {
			return &storageIOErr{err: err}
		}
		if err := txn.Delete(keycodec.EpisodeIndexKey(graphID, episodeID)); err != nil {
			return &storageIOErr{err: err}
		}
		return nil
	})
}

// DeleteEpisodeByID resolves episodeID via the secondary index and removes
// both entries.
func (e *Engine) DeleteEpisodeByID(graphID uint64, episodeID [16]byte) error {
	ep, err := e.GetEpisodeByID(graphID, episodeID)
	if err != nil {
		return err
	}
	if ep == nil {
		return nil
	}
	return e.DeleteEpisode(graphID, ep.AgentID, ep.EventTimeMs, episodeID)
}

// ScanEpisodesByAgent visits every episode for agentID in ascending
// event-time order.
func (e *Engine) ScanEpisodesByAgent(graphID uint64, agentID string, fn func(*StoredEpisode) error) error {
	return e.scanPrefix(keycodec.EpisodeAgentPrefix(graphID, agentID), true, func(_, val []byte) error {
		ep, err := decodeEpisode(val)
		if err != nil {
			return err
		}
		return fn(ep)
	})
}

// DeleteAllForAgent removes every episode (and secondary index entry)
// belonging to agentID.
func (e *Engine) DeleteAllForAgent(graphID uint64, agentID string) error {
	var ids [][16]byte
	err := e.ScanEpisodesByAgent(graphID, agentID, func(ep *StoredEpisode) error {
		ids = append(ids, ep.ID)
		return nil
	})
	if err != nil {
		return err
	}
	return e.runAtomic(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := keycodec.EpisodeAgentPrefix(graphID, agentID)
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return &storageIOErr{err: err}
			}
		}
		for _, id := range ids {
			if err := txn.Delete(keycodec.EpisodeIndexKey(graphID, id)); err != nil {
				return &storageIOErr{err: err}
			}
		}
		return nil
	})
}

// CountForAgent returns the number of episodes stored for agentID,
// including invalidated ones.
func (e *Engine) CountForAgent(graphID uint64, agentID string) (int, error) {
	n := 0
	err := e.scanPrefix(keycodec.EpisodeAgentPrefix(graphID, agentID), false, func(_, _ []byte) error {
		n++
		return nil
	})
	if err != nil {
		return 0, qerrors.Wrap("storage.CountForAgent", err)
	}
	return n, nil
}
