package storage

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/qilbeedb/qilbeedb/internal/keycodec"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// PutNode writes n's primary record and a label-index entry for each of its
// labels in a single atomic batch (spec §4.2/§4.4). If a node with the same
// id already exists, stale label-index entries for labels the new record no
// longer carries are removed in the same batch, so the index always
// reflects only the latest record (spec §8 property 4).
func (e *Engine) PutNode(graphID uint64, n *Node) error {
	return e.runAtomic(func(txn *badger.Txn) error { return putNodeTxn(txn, graphID, n) })
}

// putNodeTxn stages n's write inside an already-open transaction. Exposed at
// package level so ApplyBatch (internal/txn's commit primitive) can fold
// several node/relationship operations into one engine batch.
func putNodeTxn(txn *badger.Txn, graphID uint64, n *Node) error {
	data, err := encodeNode(n)
	if err != nil {
		return err
	}
	key := keycodec.NodeKey(graphID, n.ID)
	old, found, err := txnGet(txn, key)
	if err != nil {
		return err
	}
	if found {
		oldNode, err := decodeNode(old)
		if err != nil {
			return err
		}
		for _, label := range oldNode.Labels {
			if !n.HasLabel(label) {
				if err := txn.Delete(keycodec.LabelIndexKey(graphID, label, n.ID)); err != nil {
					return &storageIOErr{err: err}
				}
			}
		}
	}
	if err := txn.Set(key, data); err != nil {
		return &storageIOErr{err: err}
	}
	for _, label := range n.Labels {
		if err := txn.Set(keycodec.LabelIndexKey(graphID, label, n.ID), []byte{}); err != nil {
			return &storageIOErr{err: err}
		}
	}
	return nil
}

// GetNode returns the node, or (nil, nil) if it does not exist.
func (e *Engine) GetNode(graphID, nodeID uint64) (*Node, error) {
	var result *Node
	err := e.db.View(func(txn *badger.Txn) error {
		data, found, err := txnGet(txn, keycodec.NodeKey(graphID, nodeID))
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		n, err := decodeNode(data)
		if err != nil {
			return err
		}
		result = n
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("storage.GetNode", err)
	}
	return result, nil
}

// DeleteNode removes the primary record and every label-index entry for
// nodeID in a single atomic batch. It does not check adjacency; callers
// (the graph layer) enforce the "no dangling edges" invariant before
// calling this.
func (e *Engine) DeleteNode(graphID, nodeID uint64) error {
	return e.runAtomic(func(txn *badger.Txn) error { return deleteNodeTxn(txn, graphID, nodeID) })
}

func deleteNodeTxn(txn *badger.Txn, graphID, nodeID uint64) error {
	key := keycodec.NodeKey(graphID, nodeID)
	data, found, err := txnGet(txn, key)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	n, err := decodeNode(data)
	if err != nil {
		return err
	}
	if err := txn.Delete(key); err != nil {
		return &storageIOErr{err: err}
	}
	for _, label := range n.Labels {
		if err := txn.Delete(keycodec.LabelIndexKey(graphID, label, nodeID)); err != nil {
			return &storageIOErr{err: err}
		}
	}
	return nil
}

// GetAllNodes lists every node in the graph via prefix iteration.
func (e *Engine) GetAllNodes(graphID uint64) ([]*Node, error) {
	var out []*Node
	err := e.scanPrefix(keycodec.NodePrefix(graphID), true, func(_, val []byte) error {
		n, err := decodeNode(val)
		if err != nil {
			return err
		}
		out = append(out, n)
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("storage.GetAllNodes", err)
	}
	return out, nil
}

// GetNodesByLabel resolves the label index (keys only) then looks each node
// id up in the primary family: the two-level lookup pattern of spec §4.2.
func (e *Engine) GetNodesByLabel(graphID uint64, label string) ([]*Node, error) {
	var ids []uint64
	err := e.scanPrefix(keycodec.LabelIndexPrefix(graphID, label), false, func(key, _ []byte) error {
		id, err := keycodec.DecodeEntityIDSuffix(key)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, qerrors.Wrap("storage.GetNodesByLabel", err)
	}
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		n, err := e.GetNode(graphID, id)
		if err != nil {
			return nil, err
		}
		if n != nil {
			out = append(out, n)
		}
	}
	return out, nil
}

// CountNodesByLabel counts the label index's keys without resolving nodes,
// for the query planner's cost model (spec §4.5).
func (e *Engine) CountNodesByLabel(graphID uint64, label string) (int, error) {
	n := 0
	err := e.scanPrefix(keycodec.LabelIndexPrefix(graphID, label), false, func(_, _ []byte) error {
		n++
		return nil
	})
	if err != nil {
		return 0, qerrors.Wrap("storage.CountNodesByLabel", err)
	}
	return n, nil
}

// CountAllNodes counts the primary node family's keys without decoding them.
func (e *Engine) CountAllNodes(graphID uint64) (int, error) {
	n := 0
	err := e.scanPrefix(keycodec.NodePrefix(graphID), false, func(_, _ []byte) error {
		n++
		return nil
	})
	if err != nil {
		return 0, qerrors.Wrap("storage.CountAllNodes", err)
	}
	return n, nil
}
