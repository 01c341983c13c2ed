// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

// Package client dials doorman (or any SSH) servers and dispatches the
// events of the authentication exchange to the application: the server's
// version, the welcome banner, and keyboard-interactive prompts. One
// Session handle identifies the attempt across every callback; the
// dispatcher enforces that identity and the at-most-once banner rule.
package client

import (
	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"
)

// Session is the handle for one authentication attempt. It is created when
// the attempt starts, before any transport traffic, and the same pointer is
// threaded through every callback of that attempt. After a successful
// attempt it also carries the connected client.
type Session struct {
	id     string
	user   string
	target string
	client *ssh.Client
}

func newSession(user, target string) *Session {
	return &Session{id: uuid.NewString(), user: user, target: target}
}

// ID returns the attempt's unique identifier.
func (s *Session) ID() string { return s.id }

// User returns the username the attempt authenticates as.
func (s *Session) User() string { return s.user }

// Target returns the address the attempt connects to.
func (s *Session) Target() string { return s.target }

// Client returns the connected SSH client, or nil before the attempt has
// succeeded.
func (s *Session) Client() *ssh.Client { return s.client }

// Close closes the underlying connection if the attempt succeeded.
func (s *Session) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
