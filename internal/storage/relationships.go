package storage

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/qilbeedb/qilbeedb/internal/keycodec"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// PutRelationship writes r's primary record plus its outgoing- and
// incoming-adjacency entries atomically (spec §4.2). If a relationship with
// the same id already exists, its stale adjacency entries (under the old
// type/source/target) are removed in the same batch first.
func (e *Engine) PutRelationship(graphID uint64, r *Relationship) error {
	return e.runAtomic(func(txn *badger.Txn) error { return putRelationshipTxn(txn, graphID, r) })
}

func putRelationshipTxn(txn *badger.Txn, graphID uint64, r *Relationship) error {
	data, err := encodeRelationship(r)
	if err != nil {
		return err
	}
	key := keycodec.RelationshipKey(graphID, r.ID)
	old, found, err := txnGet(txn, key)
	if err != nil {
		return err
	}
	if found {
		oldRel, err := decodeRelationship(old)
		if err != nil {
			return err
		}
		if err := txn.Delete(keycodec.AdjacencyOutKey(graphID, oldRel.Source, oldRel.Type, oldRel.ID)); err != nil {
			return &storageIOErr{err: err}
		}
		if err := txn.Delete(keycodec.AdjacencyInKey(graphID, oldRel.Target, oldRel.Type, oldRel.ID)); err != nil {
			return &storageIOErr{err: err}
		}
	}
	if err := txn.Set(key, data); err != nil {
		return &storageIOErr{err: err}
	}
	if err := txn.Set(keycodec.AdjacencyOutKey(graphID, r.Source, r.Type, r.ID), []byte{}); err != nil {
		return &storageIOErr{err: err}
	}
	if err := txn.Set(keycodec.AdjacencyInKey(graphID, r.Target, r.Type, r.ID), []byte{}); err != nil {
		return &storageIOErr{err: err}
	}
	return nil
}

// GetRelationship returns the relationship, or (nil, nil) if absent.
func (e *Engine) GetRelationship(graphID, relID uint64) (*Relationship, error) {
	var result *Relationship
	err := e.db.View(func(txn *badger.Txn) error {
		data, found, err := txnGet(txn, keycodec.RelationshipKey(graphID, relID))
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		r, err := decodeRelationship(data)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("storage.GetRelationship", err)
	}
	return result, nil
}

// DeleteRelationship removes the primary record and both adjacency entries
// atomically.
func (e *Engine) DeleteRelationship(graphID, relID uint64) error {
	return e.runAtomic(func(txn *badger.Txn) error { return deleteRelationshipTxn(txn, graphID, relID) })
}

// GetOutgoingRelationships lists relationships whose source is nodeID, via
// the adjacency-out index's two-level lookup.
func (e *Engine) GetOutgoingRelationships(graphID, nodeID uint64) ([]*Relationship, error) {
	return e.resolveAdjacency(graphID, keycodec.AdjacencyOutNodePrefix(graphID, nodeID))
}

// GetIncomingRelationships lists relationships whose target is nodeID.
func (e *Engine) GetIncomingRelationships(graphID, nodeID uint64) ([]*Relationship, error) {
	return e.resolveAdjacency(graphID, keycodec.AdjacencyInNodePrefix(graphID, nodeID))
}

// GetOutgoingRelationshipsByType narrows the adjacency-out prefix to a
// single relationship type.
func (e *Engine) GetOutgoingRelationshipsByType(graphID, nodeID uint64, relType string) ([]*Relationship, error) {
	return e.resolveAdjacency(graphID, keycodec.AdjacencyOutTypePrefix(graphID, nodeID, relType))
}

// GetIncomingRelationshipsByType narrows the adjacency-in prefix to a single
// relationship type.
func (e *Engine) GetIncomingRelationshipsByType(graphID, nodeID uint64, relType string) ([]*Relationship, error) {
	return e.resolveAdjacency(graphID, keycodec.AdjacencyInTypePrefix(graphID, nodeID, relType))
}

func (e *Engine) resolveAdjacency(graphID uint64, prefix []byte) ([]*Relationship, error) {
	var ids []uint64
	err := e.scanPrefix(prefix, false, func(key, _ []byte) error {
		id, err := keycodec.DecodeEntityIDSuffix(key)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("storage.resolveAdjacency", err)
	}
	out := make([]*Relationship, 0, len(ids))
	for _, id := range ids {
		r, err := e.GetRelationship(graphID, id)
		if err != nil {
			return nil, err
		}
		if r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}
