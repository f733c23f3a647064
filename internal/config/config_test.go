package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/qilbeedb/qilbeedb/internal/collab"
	"github.com/qilbeedb/qilbeedb/internal/config"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		level config.LogLevel
		want  bool
	}{
		{config.LogLevelDebug, true},
		{config.LogLevelInfo, true},
		{config.LogLevelWarn, true},
		{config.LogLevelError, true},
		{"", true},
		{"verbose", false},
	}
	for _, tc := range cases {
		if got := tc.level.IsValid(); got != tc.want {
			t.Errorf("LogLevel(%q).IsValid() = %v, want %v", tc.level, got, tc.want)
		}
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_UnknownLLM(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	_, err := reg.CreateLLM(config.CollaboratorEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrCollaboratorNotRegistered) {
		t.Errorf("expected ErrCollaboratorNotRegistered, got: %v", err)
	}
}

func TestRegistry_UnknownEmbeddings(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	_, err := reg.CreateEmbeddings(config.CollaboratorEntry{Name: "nonexistent"})
	if !errors.Is(err, config.ErrCollaboratorNotRegistered) {
		t.Errorf("expected ErrCollaboratorNotRegistered, got: %v", err)
	}
}

func TestRegistry_RegisteredLLM(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	want := &stubCompleter{}
	reg.RegisterLLM("stub", func(e config.CollaboratorEntry) (collab.TextCompleter, error) {
		return want, nil
	})
	got, err := reg.CreateLLM(config.CollaboratorEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned collaborator is not the expected instance")
	}
}

func TestRegistry_RegisteredEmbeddings(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	want := &stubEmbedder{}
	reg.RegisterEmbeddings("stub", func(e config.CollaboratorEntry) (collab.Embedder, error) {
		return want, nil
	})
	got, err := reg.CreateEmbeddings(config.CollaboratorEntry{Name: "stub"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("returned collaborator is not the expected instance")
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	wantErr := errors.New("factory boom")
	reg.RegisterLLM("broken", func(e config.CollaboratorEntry) (collab.TextCompleter, error) {
		return nil, wantErr
	})
	_, err := reg.CreateLLM(config.CollaboratorEntry{Name: "broken"})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected factory error %v, got %v", wantErr, err)
	}
}

func TestRegistry_OverwriteRegistration(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	first := &stubCompleter{}
	second := &stubCompleter{}
	reg.RegisterLLM("dup", func(e config.CollaboratorEntry) (collab.TextCompleter, error) {
		return first, nil
	})
	reg.RegisterLLM("dup", func(e config.CollaboratorEntry) (collab.TextCompleter, error) {
		return second, nil
	})
	got, err := reg.CreateLLM(config.CollaboratorEntry{Name: "dup"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != second {
		t.Error("expected the second registration to win")
	}
}

// ── stubs ────────────────────────────────────────────────────────────────────

type stubCompleter struct{}

func (s *stubCompleter) Complete(_ context.Context, _ collab.CompletionRequest) (*collab.CompletionResponse, error) {
	return &collab.CompletionResponse{}, nil
}

type stubEmbedder struct{}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) { return nil, nil }
func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}
func (s *stubEmbedder) Dimensions() int { return 0 }
