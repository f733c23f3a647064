package qilbee

import (
	"strings"
	"testing"

	"github.com/qilbeedb/qilbeedb/internal/config"
)

// mustLoadConfig builds a minimal valid *config.Config from a YAML literal,
// the way loadOrDefault builds one when no config.yaml exists on disk.
func mustLoadConfig(t *testing.T, dir, yamlLiteral string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(yamlLiteral))
	if err != nil {
		t.Fatalf("load test config: %v", err)
	}
	cfg.Storage.DataDir = dir
	return cfg
}

func openTestDB(t *testing.T, opts ...Option) *DB {
	t.Helper()
	dir := t.TempDir()
	cfg := mustLoadConfig(t, dir, "bootstrap:\n  interactive: true\n")
	allOpts := append([]Option{WithConfig(cfg)}, opts...)
	db, err := Open(dir, allOpts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return db
}

func TestOpenAndClose(t *testing.T) {
	db := openTestDB(t)
	if db.engine == nil {
		t.Fatal("expected a non-nil storage engine")
	}
}

func TestOpenAutoCreatesDefaultGraph(t *testing.T) {
	dir := t.TempDir()
	cfg := mustLoadConfig(t, dir, "bootstrap:\n  interactive: true\ngraph:\n  default_graph: main\n")
	db, err := Open(dir, WithConfig(cfg))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if db.Graph("main") == nil {
		t.Fatal("expected the configured default graph to be auto-created")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}
