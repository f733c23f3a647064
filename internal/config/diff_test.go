package config_test

import (
	"testing"

	"github.com/qilbeedb/qilbeedb/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		LogLevel: config.LogLevelInfo,
		Security: config.SecurityConfig{MaxFailedAttempts: 5},
		Collaborators: config.CollaboratorsConfig{
			LLM: config.CollaboratorEntry{Name: "mock"},
		},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if d.SecurityChanged {
		t.Error("expected SecurityChanged=false for identical configs")
	}
	if d.CollaboratorsChanged {
		t.Error("expected CollaboratorsChanged=false for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{LogLevel: config.LogLevelInfo}
	new := &config.Config{LogLevel: config.LogLevelDebug}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogLevelDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
}

func TestDiff_SecurityChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Security: config.SecurityConfig{MaxFailedAttempts: 5}}
	new := &config.Config{Security: config.SecurityConfig{MaxFailedAttempts: 10}}

	d := config.Diff(old, new)
	if !d.SecurityChanged {
		t.Error("expected SecurityChanged=true")
	}
	if d.NewSecurity.MaxFailedAttempts != 10 {
		t.Errorf("expected NewSecurity.MaxFailedAttempts=10, got %d", d.NewSecurity.MaxFailedAttempts)
	}
}

func TestDiff_LLMCollaboratorChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Collaborators: config.CollaboratorsConfig{LLM: config.CollaboratorEntry{Name: "mock-a"}},
	}
	new := &config.Config{
		Collaborators: config.CollaboratorsConfig{LLM: config.CollaboratorEntry{Name: "mock-b"}},
	}

	d := config.Diff(old, new)
	if !d.CollaboratorsChanged {
		t.Error("expected CollaboratorsChanged=true")
	}
	if !d.LLMCollaboratorChanged {
		t.Error("expected LLMCollaboratorChanged=true")
	}
	if d.EmbeddingsChanged {
		t.Error("expected EmbeddingsChanged=false")
	}
}

func TestDiff_EmbeddingsChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		Collaborators: config.CollaboratorsConfig{Embeddings: config.CollaboratorEntry{Model: "v1"}},
	}
	new := &config.Config{
		Collaborators: config.CollaboratorsConfig{Embeddings: config.CollaboratorEntry{Model: "v2"}},
	}

	d := config.Diff(old, new)
	if !d.EmbeddingsChanged {
		t.Error("expected EmbeddingsChanged=true")
	}
}

func TestDiff_MultipleChanges(t *testing.T) {
	t.Parallel()
	old := &config.Config{
		LogLevel:      config.LogLevelInfo,
		Security:      config.SecurityConfig{MaxFailedAttempts: 5},
		Collaborators: config.CollaboratorsConfig{LLM: config.CollaboratorEntry{Name: "mock-a"}},
	}
	new := &config.Config{
		LogLevel:      config.LogLevelWarn,
		Security:      config.SecurityConfig{MaxFailedAttempts: 3},
		Collaborators: config.CollaboratorsConfig{LLM: config.CollaboratorEntry{Name: "mock-b"}},
	}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if !d.SecurityChanged {
		t.Error("expected SecurityChanged=true")
	}
	if !d.LLMCollaboratorChanged {
		t.Error("expected LLMCollaboratorChanged=true")
	}
}
