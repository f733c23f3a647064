package storage

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/qilbeedb/qilbeedb/internal/keycodec"
)

// DetachDeleteNode removes nodeID along with every relationship touching it,
// all in a single atomic batch. Spec §9 calls this out explicitly: unlike
// the constraint pre-check gap it tolerates, detach-delete must collect
// every affected key and commit them together so a crash cannot leave a
// dangling edge to a deleted node.
func (e *Engine) DetachDeleteNode(graphID, nodeID uint64) (outgoing, incoming int, err error) {
	err = e.runAtomic(func(txn *badger.Txn) error {
		outIDs, err := collectAdjacencyIDs(txn, keycodec.AdjacencyOutNodePrefix(graphID, nodeID))
		if err != nil {
			return err
		}
		inIDs, err := collectAdjacencyIDs(txn, keycodec.AdjacencyInNodePrefix(graphID, nodeID))
		if err != nil {
			return err
		}
		outgoing, incoming = len(outIDs), len(inIDs)

		for _, relID := range dedupe(outIDs, inIDs) {
			if err := deleteRelationshipTxn(txn, graphID, relID); err != nil {
				return err
			}
		}

		nkey := keycodec.NodeKey(graphID, nodeID)
		data, found, err := txnGet(txn, nkey)
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
		if err := txn.Delete(nkey); err != nil {
			return &storageIOErr{err: err}
		}
		for _, label := range n.Labels {
			if err := txn.Delete(keycodec.LabelIndexKey(graphID, label, nodeID)); err != nil {
				return &storageIOErr{err: err}
			}
		}
		return nil
	})
	return outgoing, incoming, err
}

func dedupe(a, b []uint64) []uint64 {
	seen := make(map[uint64]bool, len(a)+len(b))
	out := make([]uint64, 0, len(a)+len(b))
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func collectAdjacencyIDs(txn *badger.Txn, prefix []byte) ([]uint64, error) {
	var ids []uint64
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		key := it.Item().KeyCopy(nil)
		id, err := keycodec.DecodeEntityIDSuffix(key)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func deleteRelationshipTxn(txn *badger.Txn, graphID, relID uint64) error {
	key := keycodec.RelationshipKey(graphID, relID)
	data, found, err := txnGet(txn, key)
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
	if err := txn.Delete(key); err != nil {
		return &storageIOErr{err: err}
	}
	if err := txn.Delete(keycodec.AdjacencyOutKey(graphID, r.Source, r.Type, r.ID)); err != nil {
		return &storageIOErr{err: err}
	}
	if err := txn.Delete(keycodec.AdjacencyInKey(graphID, r.Target, r.Type, r.ID)); err != nil {
		return &storageIOErr{err: err}
	}
	return nil
}
