package temporal

import "testing"

// S8 — bi-temporal visibility scenario from spec §8.
func TestWasValidAtScenario(t *testing.T) {
	t1 := TxTimeFromMillis(100)
	t0 := TxTimeFromMillis(50)
	t2 := TxTimeFromMillis(200)
	t3 := TxTimeFromMillis(300)

	r := Record{TransactionTime: t1}
	if r.WasValidAt(t0) {
		t.Fatalf("should not be valid before transaction time")
	}
	if !r.WasValidAt(t1) {
		t.Fatalf("should be valid at transaction time")
	}

	r.Invalidate(t2)
	if !r.WasValidAt(t1) {
		t.Fatalf("still valid at t1 after invalidation at t2")
	}
	if r.WasValidAt(t3) {
		t.Fatalf("should not be valid after invalidation")
	}
}

func TestEventInRange(t *testing.T) {
	r := Record{EventTime: EventTimeFromMillis(100)}
	if !r.EventInRange(EventTimeFromMillis(0), EventTimeFromMillis(200)) {
		t.Fatalf("expected event in range")
	}
	if r.EventInRange(EventTimeFromMillis(150), EventTimeFromMillis(200)) {
		t.Fatalf("expected event out of range")
	}
}
