// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package client

// Interaction is the application-facing callback surface for one
// authentication attempt. All methods are mandatory on the contract;
// implementations that do not care about an event use the documented
// declined or no-op behavior rather than omitting the method. Every
// callback receives the attempt's Session handle.
type Interaction interface {
	// InteractionAllowed reports whether the application wants callbacks
	// for this attempt at all. When it returns false the dispatcher still
	// enforces its invariants but stops forwarding events.
	InteractionAllowed(s *Session) bool

	// VersionInfo delivers the server's identification lines once the
	// transport has them.
	VersionInfo(s *Session, lines []string)

	// Welcome delivers the server's banner. It fires at most once per
	// attempt, and never when no banner was sent.
	Welcome(s *Session, banner, lang string)

	// Interactive answers a keyboard-interactive challenge. Returning
	// ok=false declines the challenge; the dispatcher then submits one
	// empty answer per prompt, which servers treat as a refusal rather
	// than a transport error.
	Interactive(s *Session, name, instruction, lang string, prompts []string, echo []bool) (answers []string, ok bool)

	// UpdatedPassword would supply a replacement password when the server
	// demands a change. Password changes are not part of the exchange this
	// package drives, so the bundled implementations decline.
	UpdatedPassword(s *Session, prompt, lang string) (string, bool)
}

// NoopInteraction declines everything. Useful for non-interactive callers
// that only want the attempt's outcome.
type NoopInteraction struct{}

func (NoopInteraction) InteractionAllowed(*Session) bool { return false }

func (NoopInteraction) VersionInfo(*Session, []string) {}

func (NoopInteraction) Welcome(*Session, string, string) {}

func (NoopInteraction) Interactive(*Session, string, string, string, []string, []bool) ([]string, bool) {
	return nil, false
}

func (NoopInteraction) UpdatedPassword(*Session, string, string) (string, bool) {
	return "", false
}
