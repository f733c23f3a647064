package qilbee

import "testing"

func TestRecordLoginLockoutAfterRepeatedFailures(t *testing.T) {
	dir := t.TempDir()
	cfg := mustLoadConfig(t, dir, "bootstrap:\n  interactive: true\nsecurity:\n  max_failed_attempts: 2\n")
	db, err := Open(dir, WithConfig(cfg))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	for i := 0; i < 2; i++ {
		db.RecordLogin("alice", "10.0.0.1", "test-agent", false)
	}

	allowed, status := db.CheckLoginAllowed("alice", "10.0.0.1")
	if allowed {
		t.Fatal("expected alice to be locked out after repeated failures")
	}
	if !status.Locked {
		t.Fatalf("expected lockout status to report Locked, got %+v", status)
	}
}

func TestRecordLoginSuccessClearsHistory(t *testing.T) {
	db := openTestDB(t)
	db.RecordLogin("bob", "10.0.0.2", "test-agent", false)
	db.RecordLogin("bob", "10.0.0.2", "test-agent", true)

	allowed, _ := db.CheckLoginAllowed("bob", "10.0.0.2")
	if !allowed {
		t.Fatal("expected bob to be allowed to log in after a successful login")
	}
}

func TestCheckAccessReturnsGrantedUnchanged(t *testing.T) {
	db := openTestDB(t)
	if got := db.CheckAccess("u1", "alice", "read", "graph:g", "10.0.0.1", true); !got {
		t.Fatal("expected CheckAccess to pass through granted=true")
	}
	if got := db.CheckAccess("u1", "alice", "write", "graph:g", "10.0.0.1", false); got {
		t.Fatal("expected CheckAccess to pass through granted=false")
	}
}

func TestAuditEventsRecordsLoginAttempts(t *testing.T) {
	db := openTestDB(t)
	db.RecordLogin("carol", "10.0.0.3", "test-agent", true)

	events := db.AuditEvents(10)
	if len(events) == 0 {
		t.Fatal("expected at least one audit event after a login")
	}
}
