package security

import (
	"testing"
	"time"
)

func TestTokenBlacklistRevokeAndCheck(t *testing.T) {
	bl := NewTokenBlacklist()
	if bl.IsRevoked("tok-1") {
		t.Fatal("unrevoked token reported revoked")
	}
	if err := bl.Revoke("tok-1", "user-1", "alice", time.Now().Add(time.Hour), RevocationLogout); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !bl.IsRevoked("tok-1") {
		t.Fatal("revoked token reported unrevoked")
	}
	if bl.Count() != 1 {
		t.Fatalf("expected count 1, got %d", bl.Count())
	}
}

func TestTokenBlacklistRevokeAllForUser(t *testing.T) {
	bl := NewTokenBlacklist()
	bl.Revoke("tok-1", "user-1", "alice", time.Now().Add(time.Hour), RevocationLogout)
	bl.Revoke("tok-2", "user-1", "alice", time.Now().Add(time.Hour), RevocationLogout)
	bl.Revoke("tok-3", "user-2", "bob", time.Now().Add(time.Hour), RevocationLogout)

	count, err := bl.RevokeAllForUser("user-1", "alice", RevocationRevokeAll)
	if err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 pre-existing tokens revoked, got %d", count)
	}
	if !bl.IsRevoked("tok-1") || !bl.IsRevoked("tok-2") {
		t.Fatal("expected both of user-1's tokens revoked")
	}
	// tok-3 was revoked individually above; the revoke-all for user-1 must
	// add no entry or revoke-all marker for user-2.
	if _, ok := bl.GetUserRevokeAllTime("user-2"); ok || len(bl.GetUserEntries("user-2")) != 1 {
		t.Fatal("user-2's token should be unaffected")
	}
}

func TestTokenBlacklistInvalidatedByRevokeAll(t *testing.T) {
	bl := NewTokenBlacklist()
	issuedBefore := time.Now()
	time.Sleep(time.Millisecond)
	if _, err := bl.RevokeAllForUser("user-1", "alice", RevocationPasswordChanged); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	issuedAfter := time.Now().Add(time.Hour)

	if !bl.IsInvalidatedByRevokeAll("user-1", issuedBefore) {
		t.Fatal("token issued before revoke-all should be invalidated")
	}
	if bl.IsInvalidatedByRevokeAll("user-1", issuedAfter) {
		t.Fatal("token issued after revoke-all should not be invalidated")
	}
	if bl.IsInvalidatedByRevokeAll("user-2", issuedBefore) {
		t.Fatal("unrelated user should not be affected")
	}
}

func TestTokenBlacklistCleanupExpired(t *testing.T) {
	bl := NewTokenBlacklist()
	bl.Revoke("expired", "user-1", "alice", time.Now().Add(-time.Minute), RevocationLogout)
	bl.Revoke("live", "user-1", "alice", time.Now().Add(time.Hour), RevocationLogout)

	removed := bl.CleanupExpired()
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if bl.IsRevoked("expired") {
		t.Fatal("expired entry should have been cleaned up")
	}
	if !bl.IsRevoked("live") {
		t.Fatal("live entry should survive cleanup")
	}
}

func TestTokenBlacklistGetUserEntries(t *testing.T) {
	bl := NewTokenBlacklist()
	bl.Revoke("tok-1", "user-1", "alice", time.Now().Add(time.Hour), RevocationLogout)
	bl.Revoke("tok-2", "user-2", "bob", time.Now().Add(time.Hour), RevocationLogout)

	entries := bl.GetUserEntries("user-1")
	if len(entries) != 1 || entries[0].TokenID != "tok-1" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestTokenBlacklistRevokeRejectsEmptyID(t *testing.T) {
	bl := NewTokenBlacklist()
	if err := bl.Revoke("", "user-1", "alice", time.Now(), RevocationLogout); err == nil {
		t.Fatal("expected error for empty token id")
	}
}
