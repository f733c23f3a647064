package config_test

import (
	"strings"
	"testing"

	"github.com/qilbeedb/qilbeedb/internal/config"
)

const sampleYAML = `
log_level: debug

storage:
  data_dir: /var/lib/qilbeedb
  compression: zstd
  sync_writes: true

hnsw:
  m: 24
  ef_search: 80
  metric: cosine

consolidation:
  default_strategy: extract_facts
  min_episodes: 5

security:
  max_failed_attempts: 3
  track_by_ip: true

collaborators:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o
  embeddings:
    name: openai
    api_key: sk-test
    model: text-embedding-3-small

bootstrap:
  admin_username: root
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.LogLevel != config.LogLevelDebug {
		t.Errorf("log_level: got %q, want %q", cfg.LogLevel, config.LogLevelDebug)
	}
	if cfg.Storage.DataDir != "/var/lib/qilbeedb" {
		t.Errorf("storage.data_dir: got %q", cfg.Storage.DataDir)
	}
	if !cfg.Storage.SyncWrites {
		t.Error("storage.sync_writes: expected true")
	}
	if cfg.HNSW.M != 24 {
		t.Errorf("hnsw.m: got %d, want 24", cfg.HNSW.M)
	}
	if cfg.HNSW.EfSearch != 80 {
		t.Errorf("hnsw.ef_search: got %d, want 80", cfg.HNSW.EfSearch)
	}
	if cfg.Consolidation.DefaultStrategy != "extract_facts" {
		t.Errorf("consolidation.default_strategy: got %q", cfg.Consolidation.DefaultStrategy)
	}
	if cfg.Security.MaxFailedAttempts != 3 {
		t.Errorf("security.max_failed_attempts: got %d, want 3", cfg.Security.MaxFailedAttempts)
	}
	if cfg.Collaborators.LLM.Name != "openai" {
		t.Errorf("collaborators.llm.name: got %q", cfg.Collaborators.LLM.Name)
	}
	if cfg.Bootstrap.AdminUsername != "root" {
		t.Errorf("bootstrap.admin_username: got %q", cfg.Bootstrap.AdminUsername)
	}
}

func TestLoadFromReader_EmptyAppliesDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader("bootstrap:\n  admin_username: root\n"))
	if err != nil {
		t.Fatalf("unexpected error for otherwise-empty config: %v", err)
	}
	if cfg.LogLevel != config.LogLevelInfo {
		t.Errorf("default log_level: got %q, want %q", cfg.LogLevel, config.LogLevelInfo)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("default storage.data_dir should not be empty")
	}
	if cfg.HNSW.M != 16 {
		t.Errorf("default hnsw.m: got %d, want 16", cfg.HNSW.M)
	}
	if cfg.HNSW.EfConstruction != 200 {
		t.Errorf("default hnsw.ef_construction: got %d, want 200", cfg.HNSW.EfConstruction)
	}
	if cfg.Consolidation.DefaultStrategy != "summarize" {
		t.Errorf("default consolidation.default_strategy: got %q", cfg.Consolidation.DefaultStrategy)
	}
	if cfg.Security.MaxFailedAttempts != 5 {
		t.Errorf("default security.max_failed_attempts: got %d, want 5", cfg.Security.MaxFailedAttempts)
	}
	// The input sets only bootstrap.admin_username: bootstrap.interactive
	// defaults to false, and Validate rejects that without an admin_username
	// (covered separately). Every other field comes from applyDefaults.
}

func TestLoadFromReader_KnownFieldsOnly(t *testing.T) {
	t.Parallel()
	yaml := `
unknown_top_level_field: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

// ── Validation ────────────────────────────────────────────────────────────────

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: verbose
bootstrap:
  admin_username: root
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log_level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_InvalidCompression(t *testing.T) {
	t.Parallel()
	yaml := `
storage:
  compression: lz4
bootstrap:
  admin_username: root
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid compression, got nil")
	}
	if !strings.Contains(err.Error(), "compression") {
		t.Errorf("error should mention compression, got: %v", err)
	}
}

func TestValidate_InvalidBloomFalsePositive(t *testing.T) {
	t.Parallel()
	yaml := `
storage:
  bloom_false_positive: 1.5
bootstrap:
  admin_username: root
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range bloom_false_positive, got nil")
	}
}

func TestValidate_InvalidHNSWMetric(t *testing.T) {
	t.Parallel()
	yaml := `
hnsw:
  metric: manhattan
bootstrap:
  admin_username: root
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid hnsw metric, got nil")
	}
	if !strings.Contains(err.Error(), "hnsw.metric") {
		t.Errorf("error should mention hnsw.metric, got: %v", err)
	}
}

func TestValidate_InvalidConsolidationStrategy(t *testing.T) {
	t.Parallel()
	yaml := `
consolidation:
  default_strategy: teleport
bootstrap:
  admin_username: root
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid consolidation strategy, got nil")
	}
}

func TestValidate_InvalidMergeSimilarityThreshold(t *testing.T) {
	t.Parallel()
	yaml := `
consolidation:
  merge_similarity_threshold: 1.5
bootstrap:
  admin_username: root
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range merge_similarity_threshold, got nil")
	}
}

func TestValidate_InvalidMemoryRelevanceRange(t *testing.T) {
	t.Parallel()
	yaml := `
memory:
  min_relevance: -0.1
bootstrap:
  admin_username: root
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range min_relevance, got nil")
	}
}

func TestValidate_LLMWithoutEmbeddingsRejected(t *testing.T) {
	t.Parallel()
	yaml := `
collaborators:
  llm:
    name: openai
bootstrap:
  admin_username: root
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error when an LLM collaborator is configured without embeddings")
	}
	if !strings.Contains(err.Error(), "embeddings") {
		t.Errorf("error should mention embeddings, got: %v", err)
	}
}

func TestValidate_NonInteractiveBootstrapRequiresAdminUsername(t *testing.T) {
	t.Parallel()
	yaml := `
bootstrap:
  interactive: false
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for non-interactive bootstrap without admin_username, got nil")
	}
	if !strings.Contains(err.Error(), "admin_username") {
		t.Errorf("error should mention admin_username, got: %v", err)
	}
}

func TestValidate_InteractiveBootstrapAllowsEmptyAdminUsername(t *testing.T) {
	t.Parallel()
	yaml := `
bootstrap:
  interactive: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MultipleErrorsJoined(t *testing.T) {
	t.Parallel()
	yaml := `
log_level: verbose
storage:
  compression: lz4
bootstrap:
  interactive: false
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
	if !strings.Contains(errStr, "compression") {
		t.Errorf("error should mention compression, got: %v", err)
	}
	if !strings.Contains(errStr, "admin_username") {
		t.Errorf("error should mention admin_username, got: %v", err)
	}
}
