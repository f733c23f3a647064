// Package temporal implements the bi-temporal record model of spec §4.6:
// event-time (when something happened) and transaction-time (when it was
// recorded), plus the visibility predicates built on top of them.
package temporal

import "time"

// EventTime is when an event occurred in the real world.
type EventTime struct{ ms int64 }

// TxTime is when a fact was recorded into the system.
type TxTime struct{ ms int64 }

func EventTimeFromMillis(ms int64) EventTime { return EventTime{ms: ms} }
func TxTimeFromMillis(ms int64) TxTime       { return TxTime{ms: ms} }

func NowEventTime() EventTime { return EventTime{ms: time.Now().UnixMilli()} }
func NowTxTime() TxTime       { return TxTime{ms: time.Now().UnixMilli()} }

func (e EventTime) Millis() int64 { return e.ms }
func (t TxTime) Millis() int64    { return t.ms }

func (e EventTime) Time() time.Time { return time.UnixMilli(e.ms) }
func (t TxTime) Time() time.Time    { return time.UnixMilli(t.ms) }

func (e EventTime) Before(o EventTime) bool { return e.ms < o.ms }
func (e EventTime) After(o EventTime) bool  { return e.ms > o.ms }
func (t TxTime) Before(o TxTime) bool       { return t.ms < o.ms }
func (t TxTime) After(o TxTime) bool        { return t.ms > o.ms }
func (t TxTime) AfterOrEqual(o TxTime) bool { return t.ms >= o.ms }

// Record wraps a bi-temporal fact: when it happened, when it was recorded,
// and, once superseded, when it was invalidated.
type Record struct {
	EventTime     EventTime
	TransactionTime TxTime
	InvalidatedAt   *TxTime
}

// WasValidAt reports whether the record was visible at transaction-time tx:
// transactionTime <= tx AND (invalidatedAt is unset OR invalidatedAt > tx).
func (r Record) WasValidAt(tx TxTime) bool {
	if r.TransactionTime.ms > tx.ms {
		return false
	}
	if r.InvalidatedAt == nil {
		return true
	}
	return r.InvalidatedAt.ms > tx.ms
}

// EventInRange reports whether start <= eventTime <= end.
func (r Record) EventInRange(start, end EventTime) bool {
	return !r.EventTime.Before(start) && !r.EventTime.After(end)
}

// Invalidate marks the record invalidated at tx. Invariant: the record's
// transaction time must be <= tx when invalidated (spec §3.4).
func (r *Record) Invalidate(tx TxTime) {
	if tx.ms < r.TransactionTime.ms {
		tx = r.TransactionTime
	}
	r.InvalidatedAt = &tx
}

// IsInvalidated reports whether the record has ever been invalidated.
func (r Record) IsInvalidated() bool { return r.InvalidatedAt != nil }
