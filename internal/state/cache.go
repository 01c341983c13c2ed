// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

// Package state provides an in-memory mailbox for transient secrets that
// have to travel between layers of the CLI, such as a password collected by
// a flag handler and consumed by the connection attempt.
package state

import "sync"

// PasswordCache holds at most one password. It stores bytes rather than a
// string so the secret can be wiped once it has been used.
var PasswordCache = &passwordMailbox{}

type passwordMailbox struct {
	mu    sync.RWMutex
	value []byte
}

// Set stores a copy of pass, wiping whatever was stored before. A nil pass
// just clears the mailbox.
func (p *passwordMailbox) Set(pass []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()

	Wipe(p.value)
	if pass == nil {
		p.value = nil
		return
	}
	p.value = append([]byte(nil), pass...)
}

// Get returns a copy of the stored password, or nil when the mailbox is
// empty. The caller owns the copy and should Wipe it after use.
func (p *passwordMailbox) Get() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.value == nil {
		return nil
	}
	return append([]byte(nil), p.value...)
}

// Clear wipes the stored password and empties the mailbox.
func (p *passwordMailbox) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	Wipe(p.value)
	p.value = nil
}

// Wipe zeroes b in place. It is a no-op for nil slices.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
