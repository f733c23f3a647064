package storage

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/qilbeedb/qilbeedb/internal/keycodec"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// PutMeta stores a database-wide metadata value under key.
func (e *Engine) PutMeta(key string, value []byte) error {
	return e.runAtomic(func(txn *badger.Txn) error {
		if err := txn.Set(keycodec.MetaKey(key), value); err != nil {
			return &storageIOErr{err: err}
		}
		return nil
	})
}

// GetMeta returns the value for key, or (nil, false) if unset.
func (e *Engine) GetMeta(key string) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := e.db.View(func(txn *badger.Txn) error {
		v, f, err := txnGet(txn, keycodec.MetaKey(key))
		if err != nil {
			return err
		}
		out, found = v, f
		return nil
	})
	if err != nil {
		return nil, false, qerrors.Wrap("storage.GetMeta", err)
	}
	return out, found, nil
}

// PutGraphMeta stores a per-graph metadata value (e.g. the next-id
// checkpoint persisted at flush, per spec §9 "Global state").
func (e *Engine) PutGraphMeta(graphID uint64, key string, value []byte) error {
	return e.runAtomic(func(txn *badger.Txn) error {
		if err := txn.Set(keycodec.GraphMetaKey(graphID, key), value); err != nil {
			return &storageIOErr{err: err}
		}
		return nil
	})
}

// GetGraphMeta returns a per-graph metadata value.
func (e *Engine) GetGraphMeta(graphID uint64, key string) ([]byte, bool, error) {
	var out []byte
	var found bool
	err := e.db.View(func(txn *badger.Txn) error {
		v, f, err := txnGet(txn, keycodec.GraphMetaKey(graphID, key))
		if err != nil {
			return err
		}
		out, found = v, f
		return nil
	})
	if err != nil {
		return nil, false, qerrors.Wrap("storage.GetGraphMeta", err)
	}
	return out, found, nil
}

// PutSchemaEntry stores a schema definition (constraint or index) keyed by
// (kind, name) under the graph's schema family.
func (e *Engine) PutSchemaEntry(graphID uint64, kind, name string, value []byte) error {
	return e.runAtomic(func(txn *badger.Txn) error {
		if err := txn.Set(keycodec.SchemaKey(graphID, kind, name), value); err != nil {
			return &storageIOErr{err: err}
		}
		return nil
	})
}

// DeleteSchemaEntry removes a schema definition.
func (e *Engine) DeleteSchemaEntry(graphID uint64, kind, name string) error {
	return e.runAtomic(func(txn *badger.Txn) error {
		if err := txn.Delete(keycodec.SchemaKey(graphID, kind, name)); err != nil {
			return &storageIOErr{err: err}
		}
		return nil
	})
}

// ScanSchema lists every (kind, name) -> value entry for a graph.
func (e *Engine) ScanSchema(graphID uint64, fn func(kind, name string, value []byte) error) error {
	return e.scanPrefix(keycodec.SchemaGraphPrefix(graphID), true, func(key, val []byte) error {
		r := keycodec.NewReader(key)
		if _, err := r.U64(); err != nil { // graphID, already known
			return err
		}
		kind, err := r.Str()
		if err != nil {
			return err
		}
		name, err := r.Str()
		if err != nil {
			return err
		}
		return fn(kind, name, val)
	})
}
