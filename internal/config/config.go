// Package config provides the configuration schema and YAML loader for
// qilbeedb: storage tuning, graph/memory/HNSW defaults, consolidation
// policy, security enforcement knobs, collaborator selection, and the
// bootstrap flow, adapted from the teacher's YAML-via-yaml.v3 config layer.
package config

import "fmt"

// LogLevel controls log verbosity, mirrored from the server config field.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError, "":
		return true
	default:
		return false
	}
}

// Config is the root configuration structure for qilbeedb.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	LogLevel      LogLevel            `yaml:"log_level"`
	Storage       StorageConfig       `yaml:"storage"`
	Graph         GraphConfig         `yaml:"graph"`
	Memory        MemoryConfig        `yaml:"memory"`
	HNSW          HNSWConfig          `yaml:"hnsw"`
	Consolidation ConsolidationConfig `yaml:"consolidation"`
	Security      SecurityConfig      `yaml:"security"`
	Collaborators CollaboratorsConfig `yaml:"collaborators"`
	Bootstrap     BootstrapConfig     `yaml:"bootstrap"`
}

// StorageConfig tunes the embedded LSM engine (spec §4.2/§6).
type StorageConfig struct {
	// DataDir is the directory holding the single LSM instance.
	DataDir string `yaml:"data_dir"`

	// WriteBufferBytes sizes the in-memory memtable before it flushes.
	WriteBufferBytes int64 `yaml:"write_buffer_bytes"`

	// Compression selects the SSTable block compression algorithm.
	// Valid values: "none", "snappy", "zstd" (default).
	Compression string `yaml:"compression"`

	// BloomFalsePositive is the target false-positive rate for per-table
	// bloom filters.
	BloomFalsePositive float64 `yaml:"bloom_false_positive"`

	// SyncWrites enables fsync-on-commit. WAL is always enabled; this knob
	// only controls whether writes additionally sync to disk.
	SyncWrites bool `yaml:"sync_writes"`
}

// compressionValid reports whether Compression names a recognised algorithm.
func (s StorageConfig) compressionValid() bool {
	switch s.Compression {
	case "", "none", "snappy", "zstd":
		return true
	default:
		return false
	}
}

// GraphConfig holds defaults applied when a graph is created without
// explicit overrides.
type GraphConfig struct {
	// DefaultGraph names the graph created automatically at bootstrap if
	// none is catalogued yet. Empty disables auto-creation.
	DefaultGraph string `yaml:"default_graph"`
}

// MemoryConfig holds defaults for agent memory stores (spec §4.1/§4.6).
type MemoryConfig struct {
	// MaxEpisodes bounds a single AgentMemory's episode count; 0 means
	// unbounded.
	MaxEpisodes int `yaml:"max_episodes"`

	// MinRelevance is the threshold below which Forget evicts an episode.
	MinRelevance float64 `yaml:"min_relevance"`

	// DecayRate is the per-decay-call relevance decay factor.
	DecayRate float64 `yaml:"decay_rate"`
}

// HNSWConfig holds defaults for vector indexes (spec §4.7).
type HNSWConfig struct {
	M              int `yaml:"m"`
	EfConstruction int `yaml:"ef_construction"`
	EfSearch       int `yaml:"ef_search"`
	MaxLevel       int `yaml:"max_level"`

	// ML is the level-generation multiplier. Zero means "derive from M" —
	// see internal/hnsw.Config.WithDefaults.
	ML float64 `yaml:"ml"`

	// Metric selects the distance function. Valid values: "cosine"
	// (default), "dot", "euclidean".
	Metric string `yaml:"metric"`
}

func (h HNSWConfig) metricValid() bool {
	switch h.Metric {
	case "", "cosine", "dot", "euclidean":
		return true
	default:
		return false
	}
}

// ConsolidationConfig mirrors internal/consolidation.Config's knobs so they
// can be set from YAML.
type ConsolidationConfig struct {
	// DefaultStrategy selects the consolidation strategy used by
	// Consolidate. Valid values: "summarize" (default), "extract_facts",
	// "merge".
	DefaultStrategy string `yaml:"default_strategy"`

	MinEpisodes              int     `yaml:"min_episodes"`
	MaxBatchSize             int     `yaml:"max_batch_size"`
	MergeSimilarityThreshold float64 `yaml:"merge_similarity_threshold"`
	MarkConsolidated         bool    `yaml:"mark_consolidated"`
}

func (c ConsolidationConfig) strategyValid() bool {
	switch c.DefaultStrategy {
	case "", "summarize", "extract_facts", "merge":
		return true
	default:
		return false
	}
}

// SecurityConfig holds the account-lockout and audit-log knobs consumed by
// internal/security (spec §4.7/§6's boundary-invariant framing).
type SecurityConfig struct {
	MaxFailedAttempts      int  `yaml:"max_failed_attempts"`
	LockoutDurationMinutes int  `yaml:"lockout_duration_minutes"`
	AttemptWindowMinutes   int  `yaml:"attempt_window_minutes"`
	TrackByIP              bool `yaml:"track_by_ip"`
	ProgressiveLockout     bool `yaml:"progressive_lockout"`
	AuditMaxEvents         int  `yaml:"audit_max_events"`
	AuditRetentionDays     int  `yaml:"audit_retention_days"`
}

// CollaboratorEntry configures one collaborator boundary (spec §6).
type CollaboratorEntry struct {
	// Name selects the registered collaborator implementation. The core
	// never constructs a concrete provider itself — see [Registry].
	Name string `yaml:"name"`

	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// CollaboratorsConfig declares which collaborator to use for each boundary
// named in spec §6.
type CollaboratorsConfig struct {
	LLM        CollaboratorEntry `yaml:"llm"`
	Embeddings CollaboratorEntry `yaml:"embeddings"`
}

// BootstrapConfig controls the first-run admin setup (spec §6's bootstrap
// state file).
type BootstrapConfig struct {
	// AdminUsername seeds the initial admin identity when set via
	// environment rather than interactively.
	AdminUsername string `yaml:"admin_username"`

	// Interactive enables the interactive bootstrap prompt when no admin
	// username is supplied. When false and AdminUsername is empty, Open
	// fails fast instead of prompting.
	Interactive bool `yaml:"interactive"`
}

// validationError formats a field-path validation failure.
func validationError(path, format string, args ...any) error {
	return fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...))
}
