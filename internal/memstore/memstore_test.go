package memstore

import (
	"testing"

	"github.com/google/uuid"

	"github.com/qilbeedb/qilbeedb/internal/memory"
	"github.com/qilbeedb/qilbeedb/internal/storage"
	"github.com/qilbeedb/qilbeedb/internal/temporal"
)

func newTestStore(t *testing.T, dim int) (*Store, *storage.Engine) {
	t.Helper()
	e, err := storage.Open(storage.Options{InMemory: true, Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open engine: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return Open(e, 1, dim), e
}

func testEpisode(agentID string, eventMs int64, primary string) *memory.Episode {
	ep := &memory.Episode{
		ID:      uuid.New(),
		AgentID: agentID,
		Kind:    memory.KindConversation,
		Content: memory.Content{Primary: primary},
	}
	ep.Record.EventTime = temporal.EventTimeFromMillis(eventMs)
	ep.Record.TransactionTime = temporal.NowTxTime()
	return ep
}

func TestPutGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ep := testEpisode("agent-a", 1000, "hello")
	if err := s.Put(ep); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := s.Get(ep.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Content.Primary != "hello" {
		t.Fatalf("expected round-tripped episode, got %+v", got)
	}
}

func TestPutRejectsMismatchedEmbeddingDimension(t *testing.T) {
	s, _ := newTestStore(t, 4)
	ep := testEpisode("agent-a", 1000, "hello")
	ep.Content.Embedding = []float32{1, 2, 3}
	if err := s.Put(ep); err == nil {
		t.Fatalf("expected error for mismatched embedding dimension")
	}
}

func TestPutAcceptsMatchingEmbeddingDimension(t *testing.T) {
	s, _ := newTestStore(t, 3)
	ep := testEpisode("agent-a", 1000, "hello")
	ep.Content.Embedding = []float32{1, 2, 3}
	if err := s.Put(ep); err != nil {
		t.Fatalf("put: %v", err)
	}
}

func TestGetAllExcludesInvalidated(t *testing.T) {
	s, _ := newTestStore(t, 0)
	a := testEpisode("agent-a", 1000, "a")
	b := testEpisode("agent-a", 2000, "b")
	s.Put(a)
	s.Put(b)

	b.Record.Invalidate(temporal.NowTxTime())
	s.Put(b)

	all, err := s.GetAll("agent-a")
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(all) != 1 || all[0].Content.Primary != "a" {
		t.Fatalf("expected only valid episode, got %+v", all)
	}
}

func TestRangeFiltersByEventTime(t *testing.T) {
	s, _ := newTestStore(t, 0)
	s.Put(testEpisode("agent-a", 1000, "a"))
	s.Put(testEpisode("agent-a", 2000, "b"))
	s.Put(testEpisode("agent-a", 3000, "c"))

	results, err := s.Range("agent-a", 1500, 2500)
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(results) != 1 || results[0].Content.Primary != "b" {
		t.Fatalf("expected only b in range, got %+v", results)
	}
}

func TestDeleteOneAndDeleteAll(t *testing.T) {
	s, _ := newTestStore(t, 0)
	a := testEpisode("agent-a", 1000, "a")
	b := testEpisode("agent-a", 2000, "b")
	s.Put(a)
	s.Put(b)

	if err := s.DeleteOne(a.ID); err != nil {
		t.Fatalf("delete one: %v", err)
	}
	got, err := s.Get(a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected a to be deleted")
	}

	if err := s.DeleteAll("agent-a"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	n, err := s.Count("agent-a")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 remaining, got %d", n)
	}
}

func TestUpdateMutatesAndPersists(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ep := testEpisode("agent-a", 1000, "original")
	s.Put(ep)

	err := s.Update(ep.ID, func(e *memory.Episode) {
		e.Content.Primary = "updated"
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.Get(ep.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content.Primary != "updated" {
		t.Fatalf("expected updated content, got %q", got.Content.Primary)
	}
}

func TestUpdateReturnsErrorForUnknownID(t *testing.T) {
	s, _ := newTestStore(t, 0)
	err := s.Update(uuid.New(), func(e *memory.Episode) {})
	if err == nil {
		t.Fatalf("expected error for unknown episode id")
	}
}
