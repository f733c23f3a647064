// Package storage implements the keyed, multi-family storage engine (spec
// §4.2, component B) on top of an embedded LSM key-value store. Column
// families are modelled as key prefixes (internal/keycodec) over a single
// badger.DB instance, which gives every family a shared write-ahead log and
// crash-recovery story for free, the same way the teacher's Postgres-backed
// stores share one connection pool across entity kinds
// (pkg/memory/postgres/store.go).
package storage

import (
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// Compression selects the LSM's block compression algorithm.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionSnappy
	CompressionZSTD // default: the LSM's LZ4-equivalent per spec §6
)

// Options configures the storage engine.
type Options struct {
	// Dir is the on-disk database directory.
	Dir string
	// WriteBufferBytes sizes the in-memory memtable before it flushes to an
	// SSTable.
	WriteBufferBytes int64
	// Compression selects the SSTable block compression algorithm.
	Compression Compression
	// BloomFalsePositive is the target false-positive rate for per-table
	// bloom filters (lower = more bits per key, less false positives).
	BloomFalsePositive float64
	// SyncWrites enables fsync-on-commit. WAL is always enabled; this knob
	// controls whether every commit blocks for durability.
	SyncWrites bool
	// InMemory runs the engine without persisting to Dir, for tests.
	InMemory bool
	// Logger receives structural engine diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.WriteBufferBytes == 0 {
		o.WriteBufferBytes = 64 << 20
	}
	if o.BloomFalsePositive == 0 {
		o.BloomFalsePositive = 0.01
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Engine is the keyed, multi-family KV store described in spec §4.2. It is
// shareable by reference: internal synchronisation for single-key writes and
// prefix iterators is provided by the underlying badger.DB; multi-key
// atomicity is available only through a single batched write (see runAtomic
// and ApplyBatch).
type Engine struct {
	db     *badger.DB
	opts   Options
	logger *slog.Logger
}

// Open opens (and if necessary initialises) the database directory.
func Open(opts Options) (*Engine, error) {
	opts = opts.withDefaults()

	bopts := badger.DefaultOptions(opts.Dir)
	bopts = bopts.WithInMemory(opts.InMemory)
	bopts = bopts.WithSyncWrites(opts.SyncWrites)
	bopts = bopts.WithMemTableSize(opts.WriteBufferBytes)
	bopts = bopts.WithBloomFalsePositive(opts.BloomFalsePositive)
	bopts = bopts.WithLogger(nil)

	switch opts.Compression {
	case CompressionNone:
		bopts = bopts.WithCompression(options.None)
	case CompressionSnappy:
		bopts = bopts.WithCompression(options.Snappy)
	default:
		bopts = bopts.WithCompression(options.ZSTD)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, qerrors.Wrap("storage.Open", errJoinStorage(err))
	}
	return &Engine{db: db, opts: opts, logger: opts.Logger}, nil
}

func errJoinStorage(err error) error {
	return &storageIOErr{err: err}
}

type storageIOErr struct{ err error }

func (e *storageIOErr) Error() string { return e.err.Error() }
func (e *storageIOErr) Unwrap() []error {
	return []error{qerrors.ErrIO, e.err}
}

// Close flushes and releases the database.
func (e *Engine) Close() error {
	if err := e.db.Close(); err != nil {
		return qerrors.Wrap("storage.Close", err)
	}
	return nil
}

// Flush forces the active memtable to an SSTable.
func (e *Engine) Flush() error {
	return qerrors.Wrap("storage.Flush", e.db.Sync())
}

// Compact runs a best-effort compaction pass over every LSM level.
func (e *Engine) Compact() error {
	if err := e.db.Flatten(4); err != nil {
		return qerrors.Wrap("storage.Compact", err)
	}
	return nil
}

// db_ exposes the underlying badger handle for components (Batch, iterators)
// within this package that need direct transaction access.
func (e *Engine) db_() *badger.DB { return e.db }
