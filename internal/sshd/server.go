// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

// Package sshd implements doorman's SSH front door: a server that greets
// every connection with the configured welcome banner, authenticates it
// against the local user table, authorized keys or PAM, and records the
// verdict on the audit trail.
package sshd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/fenholt/doorman/buildvars"
	"github.com/fenholt/doorman/internal/banner"
	"github.com/fenholt/doorman/internal/logging"
	"github.com/fenholt/doorman/internal/metrics"
	"github.com/fenholt/doorman/internal/model"
	"github.com/fenholt/doorman/internal/sshkey"
)

const (
	defaultHandshakeTimeout = 30 * time.Second
	defaultMaxAuthTries     = 6
)

// Config carries the server's behavior switches. The zero value is not
// usable; at least one authentication path must be configured.
type Config struct {
	// ListenAddr is the address ListenAndServe binds to.
	ListenAddr string

	// ServerVersion is the identification string sent to clients. Empty
	// selects the doorman default.
	ServerVersion string

	// Banner is the welcome banner source shown before authentication.
	// The zero Source sends nothing.
	Banner banner.Source

	// BannerLang is the language tag recorded alongside resolved banners.
	BannerLang string

	// Users maps usernames to bcrypt password hashes.
	Users map[string]string

	// AuthorizedKeysFile enables public-key authentication against the
	// given file. The file is reloaded when it changes on disk.
	AuthorizedKeysFile string

	// PAMService names the PAM service to fall back to for passwords of
	// users not in Users. Empty disables PAM.
	PAMService string

	// KeyboardInteractive offers the password check over the
	// keyboard-interactive method as well.
	KeyboardInteractive bool

	// MaxAuthTries caps authentication attempts per connection. Zero
	// selects the default of 6.
	MaxAuthTries int

	// HandshakeTimeout bounds the initial handshake including all
	// authentication rounds. Zero selects 30 seconds.
	HandshakeTimeout time.Duration

	// SFTP enables the sftp subsystem on session channels. SFTPRoot sets
	// its working directory and SFTPReadOnly refuses modifications.
	SFTP         bool
	SFTPRoot     string
	SFTPReadOnly bool

	// AllowTCPForwarding permits client-opened forwards. ForwardTargets
	// restricts them to the listed host:port targets; an empty list
	// permits any target.
	AllowTCPForwarding bool
	ForwardTargets     []string
}

// AuditStore persists authentication events. A nil store disables the
// audit trail; recording failures never block authentication.
type AuditStore interface {
	RecordAuthEvent(ctx context.Context, ev *model.AuthEvent) error
}

// Server accepts SSH connections and runs one authentication attempt per
// connection.
type Server struct {
	cfg      Config
	signers  []ssh.Signer
	hostKeys []ssh.PublicKey
	authKeys *sshkey.AuthorizedKeys
	store    AuditStore

	mu    sync.Mutex
	ln    net.Listener
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

// New validates cfg and builds a server using the given host keys. The
// signers' order is kept: it decides both the key exchange offer and the
// order of art blocks in auto-generated banners.
func New(cfg Config, signers []ssh.Signer, store AuditStore) (*Server, error) {
	if len(signers) == 0 {
		return nil, fmt.Errorf("at least one host key is required")
	}
	if len(cfg.Users) == 0 && cfg.AuthorizedKeysFile == "" && cfg.PAMService == "" {
		return nil, fmt.Errorf("no authentication method configured: set users, an authorized keys file, or a pam service")
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "SSH-2.0-Doorman_" + buildvars.VersionOrDefault("dev")
	}
	if cfg.MaxAuthTries == 0 {
		cfg.MaxAuthTries = defaultMaxAuthTries
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}

	srv := &Server{
		cfg:      cfg,
		signers:  signers,
		hostKeys: sshkey.PublicKeys(signers),
		store:    store,
	}
	if cfg.AuthorizedKeysFile != "" {
		authKeys, err := sshkey.LoadAuthorizedKeys(cfg.AuthorizedKeysFile)
		if err != nil {
			return nil, err
		}
		srv.authKeys = authKeys
	}
	return srv, nil
}

// ListenAndServe binds the configured address and serves until ctx is
// canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is canceled, then closes the
// listener and every open connection and waits for the handlers to drain.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	logging.Infof("listening on %s", ln.Addr())

	if s.authKeys != nil {
		go s.watchAuthorizedKeys(ctx)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
		s.closeConns()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.track(conn)
		s.wg.Go(func() {
			defer s.untrack(conn)
			if err := s.handleConn(ctx, conn); err != nil {
				logging.Errorf("connection from %s: %v", conn.RemoteAddr(), err)
			}
		})
	}
}

// Addr returns the bound listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// handleConn runs one connection from accept to disconnect. The banner
// source is resolved first; a source that cannot be read aborts the
// connection before the handshake so the client never reaches
// authentication with a half-configured greeting.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) error {
	defer func() { _ = conn.Close() }()

	att := newAttempt(conn)
	resolver := banner.Resolver{Source: s.cfg.Banner, HostKeys: s.hostKeys, Lang: s.cfg.BannerLang}
	if err := att.resolveBanner(resolver); err != nil {
		metrics.BannerFailuresTotal.Inc()
		s.audit(att, "", "", model.OutcomeError, err.Error())
		return fmt.Errorf("refusing connection from %s: %w", att.remoteAddr, err)
	}

	sconn, chans, reqs, err := s.newServerConn(conn, att)
	if err != nil {
		var authErr *ssh.ServerAuthError
		if errors.As(err, &authErr) {
			// Every rejected method is already on the audit trail.
			return nil
		}
		return fmt.Errorf("handshake with %s failed: %w", att.remoteAddr, err)
	}
	defer func() { _ = sconn.Close() }()

	metrics.HandshakeDurationSeconds.Observe(time.Since(att.started).Seconds())
	metrics.ActiveConnections.Inc()
	defer metrics.ActiveConnections.Dec()

	logging.Infof("session opened for %s from %s (attempt %s)", sconn.User(), att.remoteAddr, att.id)
	defer logging.Debugf("session closed for %s from %s", sconn.User(), att.remoteAddr)

	go s.handleRequests(reqs)
	s.handleChannels(ctx, sconn, chans)
	return nil
}

// newServerConn runs the SSH handshake with a read deadline so a silent
// client cannot hold its handler forever.
func (s *Server) newServerConn(conn net.Conn, att *attempt) (*ssh.ServerConn, <-chan ssh.NewChannel, <-chan *ssh.Request, error) {
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeTimeout))
	defer func() { _ = conn.SetReadDeadline(time.Time{}) }()

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(true); err != nil {
			logging.Warnf("failed to set TCP_NODELAY: %v", err)
		}
	}

	return ssh.NewServerConn(conn, s.serverConfig(att))
}

// serverConfig builds the per-connection transport configuration. The
// banner and auth log callbacks close over the connection's attempt, which
// is how one attempt's state never leaks into another connection.
func (s *Server) serverConfig(att *attempt) *ssh.ServerConfig {
	cfg := &ssh.ServerConfig{
		ServerVersion: s.cfg.ServerVersion,
		MaxAuthTries:  s.cfg.MaxAuthTries,
		BannerCallback: func(ssh.ConnMetadata) string {
			return att.serveBanner()
		},
		AuthLogCallback: func(conn ssh.ConnMetadata, method string, err error) {
			s.logAuth(att, conn, method, err)
		},
	}
	if len(s.cfg.Users) > 0 || s.cfg.PAMService != "" {
		cfg.PasswordCallback = s.passwordCallback
		if s.cfg.KeyboardInteractive {
			cfg.KeyboardInteractiveCallback = s.keyboardInteractiveCallback
		}
	}
	if s.authKeys != nil {
		cfg.PublicKeyCallback = s.publicKeyCallback
	}
	for _, signer := range s.signers {
		cfg.AddHostKey(signer)
	}
	return cfg
}

// handleRequests drains global requests. Remote forwards are not offered;
// refusing tells well-behaved clients to give up immediately.
func (s *Server) handleRequests(reqs <-chan *ssh.Request) {
	for req := range reqs {
		if req.WantReply {
			_ = req.Reply(false, nil)
		}
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	if s.conns == nil {
		s.conns = map[net.Conn]struct{}{}
	}
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

func (s *Server) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}
