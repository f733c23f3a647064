package security

import (
	"sync"
	"time"
)

// AuditEventType classifies an AuditEvent. Only the subset the core itself
// triggers is modelled; export formatting and the HTTP-facing event types
// are out of scope (spec Non-goals).
type AuditEventType int

const (
	EventLogin AuditEventType = iota
	EventLoginFailed
	EventLogout
	EventTokenRefresh
	EventTokenRevoked
	EventAllTokensRevoked
	EventAccountLocked
	EventAccountUnlocked
	EventAccountLockoutTriggered
	EventPermissionDenied
	EventAccessGranted
	EventMemoryConsolidated
	EventMemoryForgotten
	EventMemoryCleared
)

func (t AuditEventType) String() string {
	switch t {
	case EventLogin:
		return "login"
	case EventLoginFailed:
		return "login_failed"
	case EventLogout:
		return "logout"
	case EventTokenRefresh:
		return "token_refresh"
	case EventTokenRevoked:
		return "token_revoked"
	case EventAllTokensRevoked:
		return "all_tokens_revoked"
	case EventAccountLocked:
		return "account_locked"
	case EventAccountUnlocked:
		return "account_unlocked"
	case EventAccountLockoutTriggered:
		return "account_lockout_triggered"
	case EventPermissionDenied:
		return "permission_denied"
	case EventAccessGranted:
		return "access_granted"
	case EventMemoryConsolidated:
		return "memory_consolidated"
	case EventMemoryForgotten:
		return "memory_forgotten"
	case EventMemoryCleared:
		return "memory_cleared"
	default:
		return "unknown"
	}
}

// AuditResult is the outcome of the audited action.
type AuditResult int

const (
	ResultSuccess AuditResult = iota
	ResultFailure
	ResultUnauthorized
	ResultForbidden
	ResultError
)

func (r AuditResult) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultUnauthorized:
		return "unauthorized"
	case ResultForbidden:
		return "forbidden"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// AuditEvent is one entry in the audit log. Timestamp is the event time;
// TransactionTime is when it was recorded, matching the bi-temporal
// distinction used everywhere else in the core (spec §4.1).
type AuditEvent struct {
	EventType       AuditEventType
	Timestamp       time.Time
	TransactionTime time.Time
	UserID          string
	Username        string
	Action          string
	Resource        string
	Result          AuditResult
	IPAddress       string
	UserAgent       string
	Metadata        map[string]string
}

// AuditFilter selects a subset of logged events. A zero-value field means
// "don't filter on this dimension."
type AuditFilter struct {
	UserID    string
	Username  string
	EventType *AuditEventType
	Action    string
	Resource  string
	Result    *AuditResult
	IPAddress string
	Since     time.Time
	Until     time.Time
}

func (f AuditFilter) matches(e AuditEvent) bool {
	if f.UserID != "" && f.UserID != e.UserID {
		return false
	}
	if f.Username != "" && f.Username != e.Username {
		return false
	}
	if f.EventType != nil && *f.EventType != e.EventType {
		return false
	}
	if f.Action != "" && f.Action != e.Action {
		return false
	}
	if f.Resource != "" && f.Resource != e.Resource {
		return false
	}
	if f.Result != nil && *f.Result != e.Result {
		return false
	}
	if f.IPAddress != "" && f.IPAddress != e.IPAddress {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
		return false
	}
	return true
}

// AuditConfig bounds the in-memory ring buffer. Persistence to disk and
// export formatting are out of scope (spec Non-goals); MaxEvents and
// RetentionDays are the only knobs that matter for an in-process log.
type AuditConfig struct {
	MaxEvents     int
	RetentionDays int
	Enabled       bool
}

// DefaultAuditConfig mirrors the collaborator's defaults.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{MaxEvents: 100000, RetentionDays: 90, Enabled: true}
}

// AuditLog is a fixed-capacity ring buffer of events, oldest-first.
type AuditLog struct {
	mu     sync.RWMutex
	events []AuditEvent
	config AuditConfig
}

// NewAuditLog returns an empty log governed by config.
func NewAuditLog(config AuditConfig) *AuditLog {
	return &AuditLog{config: config}
}

// Log appends e, evicting the oldest entry first if at capacity.
func (a *AuditLog) Log(e AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.config.Enabled {
		return
	}
	if a.config.MaxEvents > 0 && len(a.events) >= a.config.MaxEvents {
		a.events = a.events[1:]
	}
	a.events = append(a.events, e)
}

// GetRecent returns up to limit of the most recently logged events, newest
// first. limit<=0 returns every retained event, newest first.
func (a *AuditLog) GetRecent(limit int) []AuditEvent {
	a.mu.RLock()
	defer a.mu.RUnlock()
	n := len(a.events)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]AuditEvent, n)
	for i := 0; i < n; i++ {
		out[i] = a.events[len(a.events)-1-i]
	}
	return out
}

// Query returns up to limit events matching filter, newest first. limit<=0
// means unbounded.
func (a *AuditLog) Query(filter AuditFilter, limit int) []AuditEvent {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []AuditEvent
	for i := len(a.events) - 1; i >= 0; i-- {
		if !filter.matches(a.events[i]) {
			continue
		}
		out = append(out, a.events[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Count returns the number of retained events.
func (a *AuditLog) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.events)
}

// CleanupOldEvents drops events older than RetentionDays, returning the
// count removed. RetentionDays<=0 disables retention-based cleanup.
func (a *AuditLog) CleanupOldEvents() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.config.RetentionDays <= 0 {
		return 0
	}
	cutoff := time.Now().AddDate(0, 0, -a.config.RetentionDays)
	kept := a.events[:0]
	removed := 0
	for _, e := range a.events {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	a.events = kept
	return removed
}

// AuditService wraps an AuditLog with typed convenience loggers matching
// the call sites the core actually has (auth, memory consolidation), per
// spec §6's "audit-event sink" framing of the Auth/RBAC collaborator.
type AuditService struct {
	log *AuditLog
}

// NewAuditService returns a service backed by a log governed by config.
func NewAuditService(config AuditConfig) *AuditService {
	return &AuditService{log: NewAuditLog(config)}
}

func (s *AuditService) record(eventType AuditEventType, userID, username, action, resource string, result AuditResult, ip, userAgent string, metadata map[string]string) {
	now := time.Now()
	s.log.Log(AuditEvent{
		EventType:       eventType,
		Timestamp:       now,
		TransactionTime: now,
		UserID:          userID,
		Username:        username,
		Action:          action,
		Resource:        resource,
		Result:          result,
		IPAddress:       ip,
		UserAgent:       userAgent,
		Metadata:        metadata,
	})
}

// LogAuth records a login/logout/token-refresh style event.
func (s *AuditService) LogAuth(eventType AuditEventType, userID, username string, result AuditResult, ip, userAgent string) {
	s.record(eventType, userID, username, eventType.String(), "", result, ip, userAgent, nil)
}

// LogAccess records a permission check performed at an API boundary.
func (s *AuditService) LogAccess(userID, username, action, resource string, granted bool, ip string) {
	result := ResultSuccess
	eventType := EventAccessGranted
	if !granted {
		result = ResultForbidden
		eventType = EventPermissionDenied
	}
	s.record(eventType, userID, username, action, resource, result, ip, "", nil)
}

// LogAccountLockout records a lockout state change for username.
func (s *AuditService) LogAccountLockout(eventType AuditEventType, username, reason string) {
	s.record(eventType, "", username, eventType.String(), "", ResultSuccess, "", "", map[string]string{"reason": reason})
}

// LogMemoryEvent records a consolidation/forget/clear event against an
// agent's memory store.
func (s *AuditService) LogMemoryEvent(eventType AuditEventType, agentID string, detail map[string]string) {
	s.record(eventType, agentID, "", eventType.String(), "memory", ResultSuccess, "", "", detail)
}

// GetRecentEvents delegates to the underlying log.
func (s *AuditService) GetRecentEvents(limit int) []AuditEvent { return s.log.GetRecent(limit) }

// QueryEvents delegates to the underlying log.
func (s *AuditService) QueryEvents(filter AuditFilter, limit int) []AuditEvent {
	return s.log.Query(filter, limit)
}

// EventCount delegates to the underlying log.
func (s *AuditService) EventCount() int { return s.log.Count() }

// Cleanup delegates to the underlying log.
func (s *AuditService) Cleanup() int { return s.log.CleanupOldEvents() }

// GetUserEvents returns every retained event for userID, newest first.
func (s *AuditService) GetUserEvents(userID string, limit int) []AuditEvent {
	return s.log.Query(AuditFilter{UserID: userID}, limit)
}

// GetFailedAuthAttempts returns retained login-failed events, newest first.
func (s *AuditService) GetFailedAuthAttempts(limit int) []AuditEvent {
	t := EventLoginFailed
	return s.log.Query(AuditFilter{EventType: &t}, limit)
}
