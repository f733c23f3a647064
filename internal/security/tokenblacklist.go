// Package security implements the boundary invariants of spec §4.7/§6's
// Auth/RBAC collaborator (component L): token revocation, account lockout,
// and audit logging as process-wide mutable state. The core consults these
// only at API boundaries; graph and memory internals never do (spec §6).
// File persistence and export formatting are out of scope (spec Non-goals);
// these types hold everything in memory for the process lifetime.
package security

import (
	"fmt"
	"sync"
	"time"

	"github.com/qilbeedb/qilbeedb/internal/qerrors"
)

// RevocationReason classifies why a token was blacklisted.
type RevocationReason int

const (
	RevocationLogout RevocationReason = iota
	RevocationAdminRevoke
	RevocationSecurityIncident
	RevocationPasswordChanged
	RevocationRevokeAll
)

func (r RevocationReason) String() string {
	switch r {
	case RevocationLogout:
		return "logout"
	case RevocationAdminRevoke:
		return "admin_revoke"
	case RevocationSecurityIncident:
		return "security_incident"
	case RevocationPasswordChanged:
		return "password_changed"
	case RevocationRevokeAll:
		return "revoke_all"
	default:
		return "unknown"
	}
}

// invalidatesAllTokens reports whether reason marks every token a user held
// at the time as revoked, not just the one named token.
func (r RevocationReason) invalidatesAllTokens() bool {
	switch r {
	case RevocationRevokeAll, RevocationPasswordChanged, RevocationSecurityIncident, RevocationAdminRevoke:
		return true
	default:
		return false
	}
}

// BlacklistedToken is one revoked-token entry.
type BlacklistedToken struct {
	TokenID   string
	UserID    string
	Username  string
	RevokedAt time.Time
	ExpiresAt time.Time
	Reason    RevocationReason
}

// TokenBlacklist tracks revoked tokens for the process lifetime. It is a
// many-reader/single-writer structure (spec §5).
type TokenBlacklist struct {
	mu            sync.RWMutex
	blacklistedID map[string]struct{}
	entries       []BlacklistedToken
}

// NewTokenBlacklist returns an empty blacklist.
func NewTokenBlacklist() *TokenBlacklist {
	return &TokenBlacklist{blacklistedID: make(map[string]struct{})}
}

// Revoke blacklists tokenID. expiresAt lets CleanupExpired later reclaim the
// entry once the token itself could no longer have been valid.
func (b *TokenBlacklist) Revoke(tokenID, userID, username string, expiresAt time.Time, reason RevocationReason) error {
	if tokenID == "" {
		return qerrors.Wrap("security.Revoke", fmt.Errorf("%w: empty token id", qerrors.ErrValidation))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blacklistedID[tokenID] = struct{}{}
	b.entries = append(b.entries, BlacklistedToken{
		TokenID:   tokenID,
		UserID:    userID,
		Username:  username,
		RevokedAt: time.Now(),
		ExpiresAt: expiresAt,
		Reason:    reason,
	})
	return nil
}

// IsRevoked reports whether tokenID has been individually blacklisted. It
// does not account for revoke-all; callers must also consult
// IsInvalidatedByRevokeAll with the token's issue time.
func (b *TokenBlacklist) IsRevoked(tokenID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.blacklistedID[tokenID]
	return ok
}

// RevokeAllForUser blacklists every token already on record for userID and
// records a revoke-all marker so tokens issued before now (that were never
// individually listed, e.g. not yet presented) are also caught by
// IsInvalidatedByRevokeAll. Returns the number of existing entries revoked.
func (b *TokenBlacklist) RevokeAllForUser(userID, username string, reason RevocationReason) (int, error) {
	if userID == "" {
		return 0, qerrors.Wrap("security.RevokeAllForUser", fmt.Errorf("%w: empty user id", qerrors.ErrValidation))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	count := 0
	for i := range b.entries {
		if b.entries[i].UserID == userID {
			b.blacklistedID[b.entries[i].TokenID] = struct{}{}
			count++
		}
	}
	b.entries = append(b.entries, BlacklistedToken{
		TokenID:   fmt.Sprintf("revoke-all:%s:%d", userID, now.UnixNano()),
		UserID:    userID,
		Username:  username,
		RevokedAt: now,
		ExpiresAt: now,
		Reason:    reason,
	})
	return count, nil
}

// GetUserRevokeAllTime returns the latest time at which a revoke-all-class
// reason (RevokeAll, PasswordChanged, SecurityIncident, AdminRevoke) was
// recorded for userID, and whether one exists at all.
func (b *TokenBlacklist) GetUserRevokeAllTime(userID string) (time.Time, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var latest time.Time
	found := false
	for _, e := range b.entries {
		if e.UserID != userID || !e.Reason.invalidatesAllTokens() {
			continue
		}
		if !found || e.RevokedAt.After(latest) {
			latest = e.RevokedAt
			found = true
		}
	}
	return latest, found
}

// IsInvalidatedByRevokeAll reports whether a token issued at tokenIssuedAt
// for userID predates the user's most recent revoke-all marker.
func (b *TokenBlacklist) IsInvalidatedByRevokeAll(userID string, tokenIssuedAt time.Time) bool {
	revokeTime, ok := b.GetUserRevokeAllTime(userID)
	if !ok {
		return false
	}
	return !tokenIssuedAt.After(revokeTime)
}

// CleanupExpired drops entries whose ExpiresAt has passed, returning the
// number removed. The token could not have been presented as valid anymore,
// so there is no value in retaining the entry.
func (b *TokenBlacklist) CleanupExpired() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := time.Now()
	kept := b.entries[:0]
	removed := 0
	for _, e := range b.entries {
		if e.ExpiresAt.Before(now) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	b.entries = kept
	b.blacklistedID = make(map[string]struct{}, len(b.entries))
	for _, e := range b.entries {
		b.blacklistedID[e.TokenID] = struct{}{}
	}
	return removed
}

// Count returns the number of distinct blacklisted token ids.
func (b *TokenBlacklist) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.blacklistedID)
}

// EntryCount returns the number of blacklist entries, including revoke-all
// markers (which do not correspond to a single blacklisted token id).
func (b *TokenBlacklist) EntryCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// GetUserEntries returns every entry recorded for userID.
func (b *TokenBlacklist) GetUserEntries(userID string) []BlacklistedToken {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []BlacklistedToken
	for _, e := range b.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
