// Package queue defines message payloads exchanged over the message broker
// and the background consumer that turns them into an audit trail.
package queue

import "time"

// Security event types published to the security.events queue.
const (
	EventAccountLocked   = "account.locked"
	EventPasswordReset   = "password.reset"
	EventSessionsRevoked = "sessions.revoked"
)

// SecurityEvent is published when something security-relevant happens to an
// account: a lockout trips, an admin resets a password, or every session is
// revoked. Consumers get enough to log and notify without querying the
// primary database.
type SecurityEvent struct {
	Type       string    `json:"type"`
	AccountID  uint64    `json:"account_id"`
	Username   string    `json:"username,omitempty"`
	ActorID    uint64    `json:"actor_id,omitempty"` // who triggered it, when not the account itself
	Detail     string    `json:"detail,omitempty"`
	Count      int64     `json:"count,omitempty"` // sessions revoked, failed attempts, ...
	OccurredAt time.Time `json:"occurred_at"`
}
