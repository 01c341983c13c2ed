// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package client

import (
	"fmt"
	"time"
)

// ProtocolError reports a violated dispatch invariant during one
// authentication attempt: a second banner, a callback carrying a different
// session than the one bound to the attempt, or a callback that has no
// business firing at all. It is fatal to the attempt.
type ProtocolError struct {
	AttemptID string
	Reason    string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation (attempt %s): %s", e.AttemptID, e.Reason)
}

// AttemptTimeoutError reports that the overall authentication attempt,
// including banner delivery and credential round-trips, exceeded its
// deadline. It is distinct from ProtocolError and from banner
// configuration failures.
type AttemptTimeoutError struct {
	Target  string
	Timeout time.Duration
	Err     error
}

func (e *AttemptTimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("authentication attempt to %s timed out after %s", e.Target, e.Timeout)
	}
	return fmt.Sprintf("authentication attempt to %s timed out", e.Target)
}

func (e *AttemptTimeoutError) Unwrap() error {
	return e.Err
}
