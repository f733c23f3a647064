package security

import (
	"sync"
	"time"
)

// LockoutConfig controls failed-login tracking and lockout duration.
type LockoutConfig struct {
	MaxFailedAttempts  int
	LockoutDuration    time.Duration
	AttemptWindow      time.Duration
	TrackByIP          bool
	ProgressiveLockout bool
}

// DefaultLockoutConfig mirrors the collaborator's defaults: 5 attempts, a
// 15-minute lockout, a 30-minute sliding attempt window, IP tracking and
// progressive lockout both enabled.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxFailedAttempts:  5,
		LockoutDuration:    15 * time.Minute,
		AttemptWindow:      30 * time.Minute,
		TrackByIP:          true,
		ProgressiveLockout: true,
	}
}

// failedAttemptRecord is the mutable per-identity (username or IP) state.
type failedAttemptRecord struct {
	attempts       int
	windowStart    time.Time
	lastAttempt    time.Time
	locked         bool
	lockoutExpires time.Time
	lockoutCount   int
	lockoutReason  string
}

// LockoutStatus is the derived, point-in-time view of a record.
type LockoutStatus struct {
	Locked                  bool
	FailedAttempts          int
	RemainingAttempts       int
	LockoutExpires          time.Time
	LockoutRemainingSeconds int64
	LockoutCount            int
	LockoutReason           string
}

// AccountLockoutService tracks failed logins per username and, optionally,
// per source IP, locking either out after too many failures within a
// sliding window (spec §5's "process-wide mutable state" discipline: a
// many-reader/single-writer map per identity class).
type AccountLockoutService struct {
	config LockoutConfig

	userMu       sync.RWMutex
	userAttempts map[string]*failedAttemptRecord

	ipMu       sync.RWMutex
	ipAttempts map[string]*failedAttemptRecord
}

// NewAccountLockoutService returns a service with the given config.
func NewAccountLockoutService(config LockoutConfig) *AccountLockoutService {
	return &AccountLockoutService{
		config:       config,
		userAttempts: make(map[string]*failedAttemptRecord),
		ipAttempts:   make(map[string]*failedAttemptRecord),
	}
}

// CheckLoginAllowed returns true and an empty LockoutStatus if username (and
// ip, if tracked) are not currently locked out, or false and the
// LockoutStatus of whichever is locked.
func (s *AccountLockoutService) CheckLoginAllowed(username, ip string) (bool, LockoutStatus) {
	if status, locked := s.checkLocked(&s.userMu, s.userAttempts, username); locked {
		return false, status
	}
	if s.config.TrackByIP && ip != "" {
		if status, locked := s.checkLocked(&s.ipMu, s.ipAttempts, ip); locked {
			return false, status
		}
	}
	return true, LockoutStatus{}
}

func (s *AccountLockoutService) checkLocked(mu *sync.RWMutex, table map[string]*failedAttemptRecord, key string) (LockoutStatus, bool) {
	mu.RLock()
	rec, ok := table[key]
	mu.RUnlock()
	if !ok {
		return LockoutStatus{}, false
	}
	status := statusFromRecord(s.config, rec, time.Now())
	return status, status.Locked
}

// RecordFailedAttempt registers a failed login for username (and ip, if
// tracked), returning the resulting status for the username record.
func (s *AccountLockoutService) RecordFailedAttempt(username, ip string) LockoutStatus {
	status := s.recordFailure(&s.userMu, s.userAttempts, username)
	if s.config.TrackByIP && ip != "" {
		s.recordFailure(&s.ipMu, s.ipAttempts, ip)
	}
	return status
}

func (s *AccountLockoutService) recordFailure(mu *sync.RWMutex, table map[string]*failedAttemptRecord, key string) LockoutStatus {
	mu.Lock()
	defer mu.Unlock()
	now := time.Now()
	rec, ok := table[key]
	if !ok {
		rec = &failedAttemptRecord{windowStart: now}
		table[key] = rec
	}

	if rec.locked && !rec.lockoutExpires.IsZero() && now.After(rec.lockoutExpires) {
		rec.locked = false
		rec.attempts = 0
		rec.windowStart = now
	}
	if rec.locked {
		return statusFromRecord(s.config, rec, now)
	}

	if now.Sub(rec.windowStart) > s.config.AttemptWindow {
		rec.windowStart = now
		rec.attempts = 0
	}
	rec.attempts++
	rec.lastAttempt = now

	if rec.attempts >= s.config.MaxFailedAttempts {
		rec.locked = true
		rec.lockoutCount++
		duration := s.config.LockoutDuration
		if s.config.ProgressiveLockout {
			duration = s.config.LockoutDuration * time.Duration(rec.lockoutCount)
		}
		rec.lockoutExpires = now.Add(duration)
		rec.lockoutReason = "too many failed login attempts"
	}
	return statusFromRecord(s.config, rec, now)
}

// RecordSuccessfulLogin clears any failure record for username and ip.
func (s *AccountLockoutService) RecordSuccessfulLogin(username, ip string) {
	s.userMu.Lock()
	delete(s.userAttempts, username)
	s.userMu.Unlock()
	if s.config.TrackByIP && ip != "" {
		s.ipMu.Lock()
		delete(s.ipAttempts, ip)
		s.ipMu.Unlock()
	}
}

// GetUserStatus returns the current status for username.
func (s *AccountLockoutService) GetUserStatus(username string) LockoutStatus {
	return s.statusFor(&s.userMu, s.userAttempts, username)
}

// GetIPStatus returns the current status for ip.
func (s *AccountLockoutService) GetIPStatus(ip string) LockoutStatus {
	return s.statusFor(&s.ipMu, s.ipAttempts, ip)
}

func (s *AccountLockoutService) statusFor(mu *sync.RWMutex, table map[string]*failedAttemptRecord, key string) LockoutStatus {
	mu.RLock()
	defer mu.RUnlock()
	rec, ok := table[key]
	if !ok {
		return LockoutStatus{RemainingAttempts: s.config.MaxFailedAttempts}
	}
	return statusFromRecord(s.config, rec, time.Now())
}

// LockUser locks username manually, with no auto-expiry, recording reason.
func (s *AccountLockoutService) LockUser(username, reason string) {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	rec, ok := s.userAttempts[username]
	if !ok {
		rec = &failedAttemptRecord{}
		s.userAttempts[username] = rec
	}
	rec.locked = true
	rec.lockoutCount++
	rec.lockoutExpires = time.Time{}
	rec.lockoutReason = reason
}

// UnlockUser removes any lockout/failure record for username.
func (s *AccountLockoutService) UnlockUser(username string) {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	delete(s.userAttempts, username)
}

// UnlockIP removes any lockout/failure record for ip.
func (s *AccountLockoutService) UnlockIP(ip string) {
	s.ipMu.Lock()
	defer s.ipMu.Unlock()
	delete(s.ipAttempts, ip)
}

// GetLockedUsers returns the usernames currently locked.
func (s *AccountLockoutService) GetLockedUsers() []string {
	s.userMu.RLock()
	defer s.userMu.RUnlock()
	now := time.Now()
	var out []string
	for k, rec := range s.userAttempts {
		st := statusFromRecord(s.config, rec, now)
		if st.Locked {
			out = append(out, k)
		}
	}
	return out
}

// GetLockedIPs returns the IPs currently locked.
func (s *AccountLockoutService) GetLockedIPs() []string {
	s.ipMu.RLock()
	defer s.ipMu.RUnlock()
	now := time.Now()
	var out []string
	for k, rec := range s.ipAttempts {
		st := statusFromRecord(s.config, rec, now)
		if st.Locked {
			out = append(out, k)
		}
	}
	return out
}

// CleanupExpired drops records whose lockout has expired and whose attempt
// window has also lapsed (no information worth retaining), returning the
// count removed across both tables.
func (s *AccountLockoutService) CleanupExpired() int {
	now := time.Now()
	removed := 0
	s.userMu.Lock()
	for k, rec := range s.userAttempts {
		if staleRecord(rec, s.config, now) {
			delete(s.userAttempts, k)
			removed++
		}
	}
	s.userMu.Unlock()

	s.ipMu.Lock()
	for k, rec := range s.ipAttempts {
		if staleRecord(rec, s.config, now) {
			delete(s.ipAttempts, k)
			removed++
		}
	}
	s.ipMu.Unlock()
	return removed
}

func staleRecord(rec *failedAttemptRecord, cfg LockoutConfig, now time.Time) bool {
	if rec.locked {
		return !rec.lockoutExpires.IsZero() && now.After(rec.lockoutExpires)
	}
	return now.Sub(rec.windowStart) > cfg.AttemptWindow
}

func statusFromRecord(cfg LockoutConfig, rec *failedAttemptRecord, now time.Time) LockoutStatus {
	locked := rec.locked && now.Before(rec.lockoutExpires)
	if rec.locked && rec.lockoutExpires.IsZero() {
		locked = true // manual lock, no auto-expiry
	}
	remaining := cfg.MaxFailedAttempts - rec.attempts
	if remaining < 0 {
		remaining = 0
	}
	status := LockoutStatus{
		Locked:            locked,
		FailedAttempts:    rec.attempts,
		RemainingAttempts: remaining,
		LockoutCount:      rec.lockoutCount,
		LockoutReason:     rec.lockoutReason,
	}
	if locked {
		status.LockoutExpires = rec.lockoutExpires
		if !rec.lockoutExpires.IsZero() {
			status.LockoutRemainingSeconds = int64(rec.lockoutExpires.Sub(now).Seconds())
			if status.LockoutRemainingSeconds < 0 {
				status.LockoutRemainingSeconds = 0
			}
		}
	}
	return status
}
