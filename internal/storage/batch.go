package storage

import (
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// runAtomic executes fn inside a single badger transaction: either every
// write it stages lands, or (on error) none do. This is the "single atomic
// batch" primitive spec §4.2 requires for put/delete of nodes and
// relationships, and the one §9 calls for upgrading detach-delete to use.
func (e *Engine) runAtomic(fn func(txn *badger.Txn) error) error {
	err := e.db.Update(fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrConflict) {
		return qerrors.Wrap("storage", qerrors.ErrConflict)
	}
	return qerrors.Wrap("storage", &storageIOErr{err: err})
}

func txnGet(txn *badger.Txn, key []byte) ([]byte, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &storageIOErr{err: err}
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, &storageIOErr{err: err}
	}
	return val, true, nil
}

// scanPrefix returns every key (and optionally value) under prefix, in
// lexicographic order, within its own read-only transaction.
func (e *Engine) scanPrefix(prefix []byte, withValues bool, fn func(key, value []byte) error) error {
	return e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = withValues
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := append([]byte(nil), item.KeyCopy(nil)...)
			var val []byte
			if withValues {
				v, err := item.ValueCopy(nil)
				if err != nil {
					return &storageIOErr{err: err}
				}
				val = v
			}
			if err := fn(key, val); err != nil {
				return err
			}
		}
		return nil
	})
}
