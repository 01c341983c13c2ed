// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package sshd

import (
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fenholt/doorman/internal/banner"
	"github.com/fenholt/doorman/internal/metrics"
	"github.com/fenholt/doorman/internal/model"
)

// bannerPhase tracks the welcome banner through one connection. The phase
// moves along exactly one path: unresolved, then resolved, then either
// delivered or withheld. A source that cannot be read parks the attempt in
// the failed phase and the connection never reaches the handshake.
type bannerPhase int

const (
	bannerUnresolved bannerPhase = iota
	bannerResolved
	bannerDelivered
	bannerWithheld
	bannerFailed
)

// attempt is the per-connection authentication state. Each accepted
// connection gets a fresh attempt with its own ID; the ID ties audit
// records from the same connection together.
type attempt struct {
	id         string
	remoteAddr string
	started    time.Time

	mu      sync.Mutex
	phase   bannerPhase
	welcome banner.Banner
}

func newAttempt(conn net.Conn) *attempt {
	return &attempt{
		id:         uuid.NewString(),
		remoteAddr: conn.RemoteAddr().String(),
		started:    time.Now(),
	}
}

// resolveBanner fixes the attempt's welcome text before the handshake
// starts. A resolution failure is sticky; the attempt cannot recover from
// it and the caller must drop the connection.
func (a *attempt) resolveBanner(r banner.Resolver) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != bannerUnresolved {
		return nil
	}
	b, err := r.Resolve()
	if err != nil {
		a.phase = bannerFailed
		return err
	}
	a.welcome = b
	a.phase = bannerResolved
	return nil
}

// serveBanner hands the resolved text to the transport. The first call
// settles the outcome: non-empty text is delivered, absent text is
// withheld. Later calls return nothing, so the client sees at most one
// banner per attempt no matter how often the transport asks.
func (a *attempt) serveBanner() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase != bannerResolved {
		return ""
	}
	if a.welcome.IsZero() {
		a.phase = bannerWithheld
		metrics.BannersSuppressedTotal.Inc()
		return ""
	}
	a.phase = bannerDelivered
	metrics.BannersSentTotal.Inc()
	return a.welcome.Text
}

// bannerState maps the attempt's phase onto the audit vocabulary.
func (a *attempt) bannerState() model.BannerState {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.phase {
	case bannerDelivered:
		return model.BannerSent
	case bannerFailed:
		return model.BannerFailed
	default:
		return model.BannerSuppressed
	}
}
