// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package client

import (
	"sync"
)

// Dispatcher routes transport events of one authentication attempt to an
// Interaction while enforcing the attempt's invariants:
//
//   - the first event binds its Session; every later event must carry the
//     identical handle (pointer identity, not value equality)
//   - Welcome fires at most once
//   - an updated-password demand never fires during this exchange
//
// Any breach is a *ProtocolError. Violations are sticky: once an attempt is
// poisoned every further event fails, and Err reports the first cause.
// A Dispatcher serves exactly one attempt and is safe for concurrent use.
type Dispatcher struct {
	interaction Interaction

	mu        sync.Mutex
	bound     *Session
	welcomed  bool
	violation error
}

// NewDispatcher returns a dispatcher forwarding to the given interaction.
// A nil interaction is treated as NoopInteraction.
func NewDispatcher(interaction Interaction) *Dispatcher {
	if interaction == nil {
		interaction = NoopInteraction{}
	}
	return &Dispatcher{interaction: interaction}
}

// Err returns the first recorded violation, or nil.
func (d *Dispatcher) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.violation
}

// bind enforces session identity under d.mu and returns the sticky error
// state. The caller must not hold the lock.
func (d *Dispatcher) bind(s *Session) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bindLocked(s)
}

func (d *Dispatcher) bindLocked(s *Session) error {
	if d.violation != nil {
		return d.violation
	}
	if s == nil {
		d.violation = &ProtocolError{Reason: "event without a session"}
		return d.violation
	}
	if d.bound == nil {
		d.bound = s
		return nil
	}
	if d.bound != s {
		d.violation = &ProtocolError{AttemptID: d.bound.ID(), Reason: "session identity changed between callbacks"}
		return d.violation
	}
	return nil
}

// VersionInfo delivers the server identification lines.
func (d *Dispatcher) VersionInfo(s *Session, lines []string) error {
	if err := d.bind(s); err != nil {
		return err
	}
	if d.interaction.InteractionAllowed(s) {
		d.interaction.VersionInfo(s, lines)
	}
	return nil
}

// Welcome delivers the banner. A second invocation within the attempt is a
// hard protocol violation, not a silent drop.
func (d *Dispatcher) Welcome(s *Session, banner, lang string) error {
	d.mu.Lock()
	if err := d.bindLocked(s); err != nil {
		d.mu.Unlock()
		return err
	}
	if d.welcomed {
		d.violation = &ProtocolError{AttemptID: s.ID(), Reason: "second banner within one attempt"}
		d.mu.Unlock()
		return d.violation
	}
	d.welcomed = true
	d.mu.Unlock()

	if d.interaction.InteractionAllowed(s) {
		d.interaction.Welcome(s, banner, lang)
	}
	return nil
}

// Welcomed reports whether a banner has been delivered on this attempt.
func (d *Dispatcher) Welcomed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.welcomed
}

// Interactive answers a keyboard-interactive challenge. A declined or
// disallowed interaction yields one empty answer per prompt so the server
// sees a well-formed refusal; the answer count always matches the prompt
// count.
func (d *Dispatcher) Interactive(s *Session, name, instruction, lang string, prompts []string, echo []bool) ([]string, error) {
	if err := d.bind(s); err != nil {
		return nil, err
	}
	if d.interaction.InteractionAllowed(s) {
		if answers, ok := d.interaction.Interactive(s, name, instruction, lang, prompts, echo); ok {
			if len(answers) != len(prompts) {
				d.record(&ProtocolError{AttemptID: s.ID(), Reason: "interaction returned wrong number of answers"})
				return nil, d.Err()
			}
			return answers, nil
		}
	}
	return make([]string, len(prompts)), nil
}

// UpdatedPassword rejects a password-change demand. The exchange driven by
// this package never includes one, so an invocation means the transport and
// the dispatcher disagree about the protocol state.
func (d *Dispatcher) UpdatedPassword(s *Session, prompt, lang string) (string, bool, error) {
	if err := d.bind(s); err != nil {
		return "", false, err
	}
	err := &ProtocolError{AttemptID: s.ID(), Reason: "unexpected updated-password callback"}
	d.record(err)
	return "", false, err
}

func (d *Dispatcher) record(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.violation == nil {
		d.violation = err
	}
}
