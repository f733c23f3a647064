package qilbee

import (
	"context"
	"time"

	"github.com/qilbeedb/qilbeedb/internal/security"
)

func unixToTime(unixSeconds int64) time.Time {
	return time.Unix(unixSeconds, 0)
}

// CheckLoginAllowed reports whether username/ip may attempt a login right
// now, per the configured lockout policy.
func (db *DB) CheckLoginAllowed(username, ip string) (bool, security.LockoutStatus) {
	return db.security.Lockout.CheckLoginAllowed(username, ip)
}

// RecordLogin records a login attempt's outcome, updating the lockout
// tracker and the audit trail (spec §4.7/§6).
func (db *DB) RecordLogin(username, ip, userAgent string, success bool) {
	if success {
		db.security.Lockout.RecordSuccessfulLogin(username, ip)
		db.security.Audit.LogAuth(security.EventLogin, "", username, security.ResultSuccess, ip, userAgent)
		return
	}
	status := db.security.Lockout.RecordFailedAttempt(username, ip)
	result := security.ResultFailure
	db.security.Audit.LogAuth(security.EventLoginFailed, "", username, result, ip, userAgent)
	if status.Locked {
		db.security.Audit.LogAccountLockout(security.EventAccountLockoutTriggered, username, "too many failed attempts")
	}
	db.metrics.RecordAuditEvent(context.Background(), security.EventLoginFailed.String())
}

// RevokeToken blacklists a single token.
func (db *DB) RevokeToken(tokenID, userID, username string, expiresAt int64, reason security.RevocationReason) error {
	err := db.security.Blacklist.Revoke(tokenID, userID, username, unixToTime(expiresAt), reason)
	if err == nil {
		db.security.Audit.LogAuth(security.EventTokenRevoked, userID, username, security.ResultSuccess, "", "")
		db.metrics.RecordAuditEvent(context.Background(), security.EventTokenRevoked.String())
	}
	return err
}

// IsTokenRevoked reports whether tokenID has been individually blacklisted.
func (db *DB) IsTokenRevoked(tokenID string) bool {
	return db.security.Blacklist.IsRevoked(tokenID)
}

// CheckAccess logs an authorization decision to the audit trail and returns
// granted unchanged, so call sites can wrap their own policy check:
//
//	granted := hasPermission(user, action, resource)
//	return db.CheckAccess(userID, username, action, resource, ip, granted)
func (db *DB) CheckAccess(userID, username, action, resource, ip string, granted bool) bool {
	db.security.Audit.LogAccess(userID, username, action, resource, granted, ip)
	eventType := security.EventAccessGranted
	if !granted {
		eventType = security.EventPermissionDenied
	}
	db.metrics.RecordAuditEvent(context.Background(), eventType.String())
	return granted
}

// AuditEvents returns the most recent limit audit events.
func (db *DB) AuditEvents(limit int) []security.AuditEvent {
	return db.security.Audit.GetRecentEvents(limit)
}
