package storage

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/qilbeedb/qilbeedb/internal/keycodec"
)

// SweepGraph deletes every key under graphID across every family. It is the
// maintenance-pass option spec §9 tolerates for graph deletion (option (b):
// orphaned keys persist until a later compaction pass); nothing in the hot
// path calls it automatically.
func (e *Engine) SweepGraph(graphID uint64) error {
	prefixes := [][]byte{
		keycodec.NodePrefix(graphID),
		keycodec.RelationshipPrefix(graphID),
		keycodec.LabelIndexGraphPrefix(graphID),
		keycodec.AdjacencyOutGraphPrefix(graphID),
		keycodec.AdjacencyInGraphPrefix(graphID),
		keycodec.PropertyIndexGraphPrefix(graphID),
		keycodec.SchemaGraphPrefix(graphID),
		keycodec.EpisodeGraphPrefix(graphID),
		keycodec.EpisodeIndexGraphPrefix(graphID),
	}
	for _, prefix := range prefixes {
		if err := e.deletePrefix(prefix); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) deletePrefix(prefix []byte) error {
	return e.runAtomic(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
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
		return nil
	})
}
