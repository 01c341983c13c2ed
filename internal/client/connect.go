// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"
)

// Options configures one authentication attempt.
type Options struct {
	// User is the username to authenticate as.
	User string

	// Interaction receives the attempt's events. Nil means NoopInteraction.
	Interaction Interaction

	// Password, Signers, UseAgent and KeyboardInteractive select the auth
	// methods offered, in the order: keys, agent, password, interactive.
	Password            string
	Signers             []ssh.Signer
	UseAgent            bool
	KeyboardInteractive bool

	// HostKeyCallback overrides trust-store verification when set.
	HostKeyCallback ssh.HostKeyCallback

	// Trust is the known-host store consulted when no explicit callback is
	// given. Connecting with neither configured is refused.
	Trust TrustStore

	// Timeout bounds the whole attempt: dialing, banner delivery and every
	// credential round-trip. Zero means no deadline beyond the context's.
	Timeout time.Duration

	// ClientVersion overrides the identification string sent to the server.
	ClientVersion string
}

// Connect dials addr and runs one authentication attempt. Deadline expiry
// surfaces as *AttemptTimeoutError; dispatch invariant breaches surface as
// *ProtocolError.
func Connect(ctx context.Context, addr string, opts Options) (*Session, error) {
	addr = normalizeAddr(addr)
	ctx, cancel := withAttemptDeadline(ctx, opts.Timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		if isTimeout(err) {
			return nil, &AttemptTimeoutError{Target: addr, Timeout: opts.Timeout, Err: err}
		}
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return attempt(ctx, conn, addr, opts)
}

// Attempt runs one authentication attempt over an established connection.
// It exists so callers owning their own transport (tests, proxies) get the
// same dispatch and timeout behavior as Connect.
func Attempt(ctx context.Context, conn net.Conn, addr string, opts Options) (*Session, error) {
	ctx, cancel := withAttemptDeadline(ctx, opts.Timeout)
	defer cancel()
	return attempt(ctx, conn, addr, opts)
}

func attempt(ctx context.Context, conn net.Conn, addr string, opts Options) (*Session, error) {
	sess := newSession(opts.User, addr)
	disp := NewDispatcher(opts.Interaction)

	hostKeyCallback := opts.HostKeyCallback
	if hostKeyCallback == nil {
		if opts.Trust == nil {
			conn.Close()
			return nil, fmt.Errorf("refusing to connect to %s without host key verification", addr)
		}
		hostKeyCallback = TrustCallback(opts.Trust)
	}

	auth, err := opts.authMethods(disp, sess)
	if err != nil {
		conn.Close()
		return nil, err
	}

	cfg := &ssh.ClientConfig{
		User:            opts.User,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		BannerCallback: func(message string) error {
			// The wire does not expose the banner's language tag; it is
			// carried as the empty default.
			return disp.Welcome(sess, message, "")
		},
	}
	if opts.ClientVersion != "" {
		cfg.ClientVersion = opts.ClientVersion
	}

	type handshake struct {
		conn  ssh.Conn
		chans <-chan ssh.NewChannel
		reqs  <-chan *ssh.Request
		err   error
	}
	done := make(chan handshake, 1)
	go func() {
		c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
		done <- handshake{conn: c, chans: chans, reqs: reqs, err: err}
	}()

	select {
	case <-ctx.Done():
		conn.Close()
		<-done
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &AttemptTimeoutError{Target: addr, Timeout: opts.Timeout, Err: ctx.Err()}
		}
		return nil, ctx.Err()
	case hs := <-done:
		if hs.err != nil {
			conn.Close()
			if verr := disp.Err(); verr != nil {
				return nil, verr
			}
			return nil, fmt.Errorf("handshake with %s failed: %w", addr, hs.err)
		}
		sess.client = ssh.NewClient(hs.conn, hs.chans, hs.reqs)
		if err := disp.VersionInfo(sess, []string{string(hs.conn.ServerVersion())}); err != nil {
			sess.Close()
			return nil, err
		}
		return sess, nil
	}
}

// authMethods assembles the offered auth methods. The keyboard-interactive
// method routes challenges through the dispatcher so prompts reach the
// application with the attempt's session handle.
func (o Options) authMethods(disp *Dispatcher, sess *Session) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if len(o.Signers) > 0 {
		methods = append(methods, ssh.PublicKeys(o.Signers...))
	}
	if o.UseAgent {
		if agentClient := getSSHAgent(); agentClient != nil {
			methods = append(methods, ssh.PublicKeysCallback(agentClient.Signers))
		}
	}
	if o.Password != "" {
		methods = append(methods, ssh.Password(o.Password))
	}
	if o.KeyboardInteractive {
		methods = append(methods, ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
			return disp.Interactive(sess, name, instruction, "", questions, echos)
		}))
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("no authentication method available (no key, no password, and no ssh agent found)")
	}
	return methods, nil
}

func withAttemptDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// normalizeAddr adds port 22 if not specified.
func normalizeAddr(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return net.JoinHostPort(addr, "22")
	}
	return addr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
