// Package qilbee is the public facade for qilbeedb: an embedded,
// bi-temporal property-graph database with agent memory and HNSW vector
// search. Open wires the storage engine, graph catalogue, agent-memory
// layer, query engine, consolidation service, and security boundary into a
// single *DB, mirroring the teacher's internal/app.New wiring style.
package qilbee

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/qilbeedb/qilbeedb/internal/collab"
	"github.com/qilbeedb/qilbeedb/internal/config"
	"github.com/qilbeedb/qilbeedb/internal/consolidation"
	"github.com/qilbeedb/qilbeedb/internal/graph"
	"github.com/qilbeedb/qilbeedb/internal/hnsw"
	"github.com/qilbeedb/qilbeedb/internal/memory"
	"github.com/qilbeedb/qilbeedb/internal/memstore"
	"github.com/qilbeedb/qilbeedb/internal/observe"
	"github.com/qilbeedb/qilbeedb/internal/qerrors"
	"github.com/qilbeedb/qilbeedb/internal/resilience"
	"github.com/qilbeedb/qilbeedb/internal/security"
	"github.com/qilbeedb/qilbeedb/internal/storage"
)

// DB is a single open qilbeedb instance: one storage engine, its graph
// catalogue, the in-process agent-memory stores layered on it, and the
// security/collaborator boundaries the core consults (spec §6).
type DB struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observe.Metrics
	engine   *storage.Engine
	graphs   *graph.Database
	security *security.Suite

	llm        collab.TextCompleter
	embeddings collab.Embedder

	txnSeq atomic.Uint64

	mu        sync.RWMutex
	memories  map[string]*memory.AgentMemory // graphName/agentID -> in-proc store
	memstores map[uint64]*memstore.Store     // graphID -> durable episode store
	vectors   map[string]*hnsw.Index         // graphName/indexName -> HNSW index
	consoler  *consolidation.Service

	// loadGroup deduplicates concurrent first-touch loads of the same
	// agent-memory key, so a thundering herd of callers opening the
	// same agent's memory only pays the memstore scan once.
	loadGroup singleflight.Group

	closeOnce sync.Once
}

// Option configures a DB at Open time. Mirrors the teacher's functional
// options on app.New for injecting test doubles.
type Option func(*options)

type llmFallback struct {
	name string
	c    collab.TextCompleter
}

type options struct {
	cfg          *config.Config
	llm          collab.TextCompleter
	llmFallbacks []llmFallback
	embeddings   collab.Embedder
	logger       *slog.Logger
	metrics      *observe.Metrics
}

// WithConfig supplies a fully-formed configuration instead of loading one
// from dataDir/config.yaml.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLLM injects a text-completion collaborator, bypassing the config
// registry. Use this in tests with internal/collab/llmmock.
func WithLLM(c collab.TextCompleter) Option {
	return func(o *options) { o.llm = c }
}

// WithLLMFallback registers an additional text-completion collaborator that
// Consolidate falls through to, in registration order, when a
// higher-priority collaborator's circuit breaker is open or its call fails.
// Requires WithLLM to establish the primary.
func WithLLMFallback(name string, c collab.TextCompleter) Option {
	return func(o *options) { o.llmFallbacks = append(o.llmFallbacks, llmFallback{name: name, c: c}) }
}

// WithEmbeddings injects an embedding collaborator, bypassing the config
// registry. Use this in tests with internal/collab/embedmock.
func WithEmbeddings(c collab.Embedder) Option {
	return func(o *options) { o.embeddings = c }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics overrides the default OTel-backed metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Open opens (and if necessary initialises) a qilbeedb instance rooted at
// dataDir. Unless WithConfig is supplied, configuration is loaded from
// dataDir/config.yaml if present, otherwise engine defaults apply with
// dataDir as the storage directory.
func Open(dataDir string, opts ...Option) (*DB, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		loaded, err := loadOrDefault(dataDir)
		if err != nil {
			return nil, fmt.Errorf("qilbee: load config: %w", err)
		}
		cfg = loaded
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = dataDir
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := o.metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	engine, err := storage.Open(storage.Options{
		Dir:                cfg.Storage.DataDir,
		WriteBufferBytes:   cfg.Storage.WriteBufferBytes,
		Compression:        compressionFromString(cfg.Storage.Compression),
		BloomFalsePositive: cfg.Storage.BloomFalsePositive,
		SyncWrites:         cfg.Storage.SyncWrites,
		Logger:             logger,
	})
	if err != nil {
		return nil, qerrors.Wrap("qilbee.Open", err)
	}

	graphs, err := graph.Open(engine)
	if err != nil {
		_ = engine.Close()
		return nil, qerrors.Wrap("qilbee.Open", err)
	}

	db := &DB{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		engine:     engine,
		graphs:     graphs,
		security:   security.NewSuite(securityConfig(cfg.Security)),
		llm:        o.llm,
		embeddings: o.embeddings,
		memories:   make(map[string]*memory.AgentMemory),
		memstores:  make(map[uint64]*memstore.Store),
		vectors:    make(map[string]*hnsw.Index),
	}

	if db.llm == nil && cfg.Collaborators.LLM.Name != "" {
		logger.Warn("qilbee: llm collaborator configured but no registry wired; pass qilbee.WithLLM", "name", cfg.Collaborators.LLM.Name)
	}
	if db.embeddings == nil && cfg.Collaborators.Embeddings.Name != "" {
		logger.Warn("qilbee: embeddings collaborator configured but no registry wired; pass qilbee.WithEmbeddings", "name", cfg.Collaborators.Embeddings.Name)
	}

	if db.llm != nil {
		active := collab.TextCompleter(collab.WithCircuitBreaker(db.llm, resilience.CircuitBreakerConfig{Name: "consolidation.llm"}))
		if len(o.llmFallbacks) > 0 {
			fallback := collab.NewFallbackCompleter(active, "primary")
			for _, f := range o.llmFallbacks {
				fallback.AddFallback(f.name, collab.WithCircuitBreaker(f.c, resilience.CircuitBreakerConfig{Name: f.name}))
			}
			active = fallback
		}
		db.consoler = consolidation.NewService(consolidationConfig(cfg.Consolidation), active)
	}

	if cfg.Graph.DefaultGraph != "" && graphs.GetGraph(cfg.Graph.DefaultGraph) == nil {
		if _, err := graphs.CreateGraph(cfg.Graph.DefaultGraph); err != nil {
			_ = engine.Close()
			return nil, qerrors.Wrap("qilbee.Open", err)
		}
	}

	return db, nil
}

// loadOrDefault loads dataDir/config.yaml when present; otherwise it builds
// a defaults-only config rooted at dataDir, the same "no config file yet"
// tolerance the teacher's config.Load callers handle via errors.Is(os.ErrNotExist).
func loadOrDefault(dataDir string) (*config.Config, error) {
	path := dataDir + "/config.yaml"
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	// No config file: fall back to engine defaults with bootstrap left
	// interactive, since there is no admin_username to read from anywhere.
	return config.LoadFromReader(strings.NewReader("bootstrap:\n  interactive: true\n"))
}

func compressionFromString(s string) storage.Compression {
	switch s {
	case "none":
		return storage.CompressionNone
	case "snappy":
		return storage.CompressionSnappy
	default:
		return storage.CompressionZSTD
	}
}

func securityConfig(c config.SecurityConfig) security.SuiteConfig {
	return security.SuiteConfig{
		Lockout: security.LockoutConfig{
			MaxFailedAttempts:  c.MaxFailedAttempts,
			AttemptWindow:      minutesOrDefault(c.AttemptWindowMinutes, 30),
			LockoutDuration:    minutesOrDefault(c.LockoutDurationMinutes, 15),
			TrackByIP:          c.TrackByIP,
			ProgressiveLockout: c.ProgressiveLockout,
		},
		Audit: security.AuditConfig{
			MaxEvents:     c.AuditMaxEvents,
			RetentionDays: c.AuditRetentionDays,
			Enabled:       true,
		},
	}
}

func minutesOrDefault(minutes int, fallback int) time.Duration {
	if minutes <= 0 {
		minutes = fallback
	}
	return time.Duration(minutes) * time.Minute
}

func consolidationConfig(c config.ConsolidationConfig) consolidation.Config {
	return consolidation.Config{
		DefaultStrategy:          parseStrategy(c.DefaultStrategy),
		MinEpisodes:              c.MinEpisodes,
		MaxBatchSize:             c.MaxBatchSize,
		MergeSimilarityThreshold: c.MergeSimilarityThreshold,
		MarkConsolidated:         c.MarkConsolidated,
	}
}

func parseStrategy(s string) consolidation.Strategy {
	switch s {
	case "extract_facts":
		return consolidation.ExtractFacts
	case "merge":
		return consolidation.Merge
	default:
		return consolidation.Summarize
	}
}

// Close flushes and releases every open resource. Safe to call more than
// once; only the first call does work.
func (db *DB) Close() error {
	var err error
	db.closeOnce.Do(func() {
		err = db.engine.Close()
	})
	return err
}
