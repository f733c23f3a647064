package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-valued fields with the engine's production
// defaults, mirroring internal/storage.Options.WithDefaults,
// internal/hnsw.Config.WithDefaults, and internal/consolidation.DefaultConfig.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogLevelInfo
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./qilbeedb-data"
	}
	if cfg.Storage.WriteBufferBytes == 0 {
		cfg.Storage.WriteBufferBytes = 64 << 20
	}
	if cfg.Storage.Compression == "" {
		cfg.Storage.Compression = "zstd"
	}
	if cfg.Storage.BloomFalsePositive == 0 {
		cfg.Storage.BloomFalsePositive = 0.01
	}

	if cfg.HNSW.M == 0 {
		cfg.HNSW.M = 16
	}
	if cfg.HNSW.EfConstruction == 0 {
		cfg.HNSW.EfConstruction = 200
	}
	if cfg.HNSW.EfSearch == 0 {
		cfg.HNSW.EfSearch = 64
	}
	if cfg.HNSW.MaxLevel == 0 {
		cfg.HNSW.MaxLevel = 16
	}
	// ML is left at 0 when unset: internal/hnsw.Config.WithDefaults derives
	// it from M (1/ln(M)), so the config layer must not duplicate that
	// formula and risk drifting from the engine's own default.
	if cfg.HNSW.Metric == "" {
		cfg.HNSW.Metric = "cosine"
	}

	if cfg.Consolidation.DefaultStrategy == "" {
		cfg.Consolidation.DefaultStrategy = "summarize"
	}
	if cfg.Consolidation.MinEpisodes == 0 {
		cfg.Consolidation.MinEpisodes = 3
	}
	if cfg.Consolidation.MaxBatchSize == 0 {
		cfg.Consolidation.MaxBatchSize = 10
	}
	if cfg.Consolidation.MergeSimilarityThreshold == 0 {
		cfg.Consolidation.MergeSimilarityThreshold = 0.8
	}

	if cfg.Security.MaxFailedAttempts == 0 {
		cfg.Security.MaxFailedAttempts = 5
	}
	if cfg.Security.LockoutDurationMinutes == 0 {
		cfg.Security.LockoutDurationMinutes = 15
	}
	if cfg.Security.AttemptWindowMinutes == 0 {
		cfg.Security.AttemptWindowMinutes = 30
	}
	if cfg.Security.AuditMaxEvents == 0 {
		cfg.Security.AuditMaxEvents = 100000
	}
	if cfg.Security.AuditRetentionDays == 0 {
		cfg.Security.AuditRetentionDays = 90
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, validationError("log_level", "invalid value %q; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Storage.DataDir == "" {
		errs = append(errs, validationError("storage.data_dir", "must not be empty"))
	}
	if !cfg.Storage.compressionValid() {
		errs = append(errs, validationError("storage.compression", "invalid value %q; valid values: none, snappy, zstd", cfg.Storage.Compression))
	}
	if cfg.Storage.BloomFalsePositive < 0 || cfg.Storage.BloomFalsePositive >= 1 {
		errs = append(errs, validationError("storage.bloom_false_positive", "must be in [0, 1), got %v", cfg.Storage.BloomFalsePositive))
	}

	if !cfg.HNSW.metricValid() {
		errs = append(errs, validationError("hnsw.metric", "invalid value %q; valid values: cosine, dot, euclidean", cfg.HNSW.Metric))
	}
	if cfg.HNSW.M <= 0 {
		errs = append(errs, validationError("hnsw.m", "must be positive, got %d", cfg.HNSW.M))
	}
	if cfg.HNSW.EfSearch <= 0 {
		errs = append(errs, validationError("hnsw.ef_search", "must be positive, got %d", cfg.HNSW.EfSearch))
	}

	if !cfg.Consolidation.strategyValid() {
		errs = append(errs, validationError("consolidation.default_strategy", "invalid value %q; valid values: summarize, extract_facts, merge", cfg.Consolidation.DefaultStrategy))
	}
	if cfg.Consolidation.MergeSimilarityThreshold < 0 || cfg.Consolidation.MergeSimilarityThreshold > 1 {
		errs = append(errs, validationError("consolidation.merge_similarity_threshold", "must be in [0, 1], got %v", cfg.Consolidation.MergeSimilarityThreshold))
	}

	if cfg.Memory.MinRelevance < 0 || cfg.Memory.MinRelevance > 1 {
		errs = append(errs, validationError("memory.min_relevance", "must be in [0, 1], got %v", cfg.Memory.MinRelevance))
	}
	if cfg.Memory.DecayRate < 0 || cfg.Memory.DecayRate > 1 {
		errs = append(errs, validationError("memory.decay_rate", "must be in [0, 1], got %v", cfg.Memory.DecayRate))
	}

	if cfg.Collaborators.LLM.Name != "" && cfg.Collaborators.Embeddings.Name == "" {
		errs = append(errs, validationError("collaborators.embeddings.name", "an LLM collaborator is configured without an embedding collaborator; vector search over new episodes will be unavailable"))
	}

	if !cfg.Bootstrap.Interactive && cfg.Bootstrap.AdminUsername == "" {
		errs = append(errs, validationError("bootstrap.admin_username", "must be set when bootstrap.interactive is false"))
	}

	return errors.Join(errs...)
}
