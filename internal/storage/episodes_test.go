package storage

import "testing"

func testEpisode(b byte, agentID string, eventTimeMs int64, primary string) *StoredEpisode {
	ep := &StoredEpisode{AgentID: agentID, Kind: "conversation", EventTimeMs: eventTimeMs, Primary: primary}
	ep.ID[0] = b
	return ep
}

func TestPutGetEpisodeRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	ep := testEpisode(1, "agent-a", 1000, "hello")
	if err := e.PutEpisode(1, ep); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := e.GetEpisode(1, "agent-a", 1000, ep.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Primary != "hello" {
		t.Fatalf("expected round-tripped episode, got %+v", got)
	}
}

func TestGetEpisodeByIDResolvesViaSecondaryIndex(t *testing.T) {
	e := newTestEngine(t)
	ep := testEpisode(2, "agent-a", 2000, "via index")
	if err := e.PutEpisode(1, ep); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := e.GetEpisodeByID(1, ep.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got == nil || got.Primary != "via index" {
		t.Fatalf("expected to resolve episode by id, got %+v", got)
	}
}

func TestPutEpisodeMovesStalePrimaryOnEventTimeChange(t *testing.T) {
	e := newTestEngine(t)
	ep := testEpisode(3, "agent-a", 1000, "first")
	if err := e.PutEpisode(1, ep); err != nil {
		t.Fatalf("put: %v", err)
	}
	ep.EventTimeMs = 5000
	ep.Primary = "moved"
	if err := e.PutEpisode(1, ep); err != nil {
		t.Fatalf("put moved: %v", err)
	}
	stale, err := e.GetEpisode(1, "agent-a", 1000, ep.ID)
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if stale != nil {
		t.Fatalf("expected stale primary entry removed, got %+v", stale)
	}
	moved, err := e.GetEpisode(1, "agent-a", 5000, ep.ID)
	if err != nil {
		t.Fatalf("get moved: %v", err)
	}
	if moved == nil || moved.Primary != "moved" {
		t.Fatalf("expected episode at new event-time, got %+v", moved)
	}
}

func TestDeleteEpisodeByIDRemovesBothEntries(t *testing.T) {
	e := newTestEngine(t)
	ep := testEpisode(4, "agent-a", 1000, "to delete")
	if err := e.PutEpisode(1, ep); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := e.DeleteEpisodeByID(1, ep.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := e.GetEpisodeByID(1, ep.ID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Fatalf("expected episode gone after delete, got %+v", got)
	}
}

func TestScanEpisodesByAgentOrdersByEventTime(t *testing.T) {
	e := newTestEngine(t)
	e.PutEpisode(1, testEpisode(1, "agent-a", 3000, "third"))
	e.PutEpisode(1, testEpisode(2, "agent-a", 1000, "first"))
	e.PutEpisode(1, testEpisode(3, "agent-a", 2000, "second"))
	e.PutEpisode(1, testEpisode(4, "agent-b", 500, "other agent"))

	var order []string
	err := e.ScanEpisodesByAgent(1, "agent-a", func(ep *StoredEpisode) error {
		order = append(order, ep.Primary)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(order) != 3 || order[0] != "first" || order[1] != "second" || order[2] != "third" {
		t.Fatalf("expected ascending event-time order, got %v", order)
	}
}

func TestDeleteAllForAgentClearsOnlyThatAgent(t *testing.T) {
	e := newTestEngine(t)
	a1 := testEpisode(1, "agent-a", 1000, "a1")
	a2 := testEpisode(2, "agent-a", 2000, "a2")
	b1 := testEpisode(3, "agent-b", 1000, "b1")
	e.PutEpisode(1, a1)
	e.PutEpisode(1, a2)
	e.PutEpisode(1, b1)

	if err := e.DeleteAllForAgent(1, "agent-a"); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	n, err := e.CountForAgent(1, "agent-a")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0 remaining for agent-a, got %d", n)
	}
	if got, err := e.GetEpisodeByID(1, a1.ID); err != nil || got != nil {
		t.Fatalf("expected a1 secondary index cleared, got %+v err=%v", got, err)
	}
	nb, err := e.CountForAgent(1, "agent-b")
	if err != nil {
		t.Fatalf("count b: %v", err)
	}
	if nb != 1 {
		t.Fatalf("expected agent-b untouched, got %d", nb)
	}
}
