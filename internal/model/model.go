package model

import (
	"fmt"
	"time"
)

// AuthOutcome classifies how an authentication attempt ended.
type AuthOutcome string

const (
	// OutcomeAccepted means the server accepted the attempt.
	OutcomeAccepted AuthOutcome = "accepted"

	// OutcomeRejected means every offered method was refused.
	OutcomeRejected AuthOutcome = "rejected"

	// OutcomeError means the attempt died before a verdict
	// (handshake failure, banner setup failure, timeout).
	OutcomeError AuthOutcome = "error"
)

// BannerState records what happened to the welcome banner during an attempt.
type BannerState string

const (
	// BannerSent means exactly one banner message went out.
	BannerSent BannerState = "sent"

	// BannerSuppressed means the banner source resolved to absent and
	// nothing was sent. This is the quiet default, not a failure.
	BannerSuppressed BannerState = "suppressed"

	// BannerFailed means the configured source could not be read and the
	// attempt was aborted before authentication.
	BannerFailed BannerState = "failed"
)

// AuthEvent is one authentication attempt as recorded in the audit trail.
type AuthEvent struct {
	ID         int         `json:"id"`          // The primary key for the event.
	AttemptID  string      `json:"attempt_id"`  // UUID assigned when the connection was accepted.
	Timestamp  time.Time   `json:"timestamp"`   // When the event was recorded.
	RemoteAddr string      `json:"remote_addr"` // Peer address of the connection.
	Username   string      `json:"username"`    // Username offered by the client (may be empty on handshake failure).
	Method     string      `json:"method"`      // Auth method that produced the verdict ("password", "publickey", ...).
	Outcome    AuthOutcome `json:"outcome"`
	Banner     BannerState `json:"banner"`
	Detail     string      `json:"detail,omitempty"` // Free-form context (rejection reason, error text).
}

// String returns the outcome@addr representation used in log lines.
func (e AuthEvent) String() string {
	return fmt.Sprintf("%s %s@%s via %s", e.Outcome, e.Username, e.RemoteAddr, e.Method)
}
