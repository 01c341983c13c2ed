// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package sshd

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/ssh"

	"github.com/fenholt/doorman/internal/model"
	"github.com/fenholt/doorman/internal/sshkey"
)

type fakeConnMeta struct {
	user string
}

func (f fakeConnMeta) User() string          { return f.user }
func (f fakeConnMeta) SessionID() []byte     { return []byte("test-session") }
func (f fakeConnMeta) ClientVersion() []byte { return []byte("SSH-2.0-test") }
func (f fakeConnMeta) ServerVersion() []byte { return []byte("SSH-2.0-Doorman_test") }
func (f fakeConnMeta) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(192, 0, 2, 7), Port: 50000}
}
func (f fakeConnMeta) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 22}
}

type memStore struct {
	mu     sync.Mutex
	events []model.AuthEvent
}

func (m *memStore) RecordAuthEvent(ctx context.Context, ev *model.AuthEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *ev)
	return nil
}

func (m *memStore) snapshot() []model.AuthEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.AuthEvent(nil), m.events...)
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	return string(hash)
}

func TestVerifyPassword_UserTable(t *testing.T) {
	srv := &Server{cfg: Config{Users: map[string]string{"alice": mustHash(t, "secret")}}}

	if _, err := srv.verifyPassword("alice", "secret"); err != nil {
		t.Fatalf("valid credentials rejected: %v", err)
	}
	if _, err := srv.verifyPassword("alice", "wrong"); err == nil {
		t.Fatal("wrong password accepted")
	}
	if _, err := srv.verifyPassword("mallory", "secret"); err == nil {
		t.Fatal("unknown user accepted")
	}
}

func TestKeyboardInteractive_SinglePasswordRound(t *testing.T) {
	srv := &Server{cfg: Config{Users: map[string]string{"alice": mustHash(t, "secret")}}}

	var prompts []string
	challenge := func(name, instruction string, questions []string, echos []bool) ([]string, error) {
		prompts = questions
		return []string{"secret"}, nil
	}
	if _, err := srv.keyboardInteractiveCallback(fakeConnMeta{user: "alice"}, challenge); err != nil {
		t.Fatalf("challenge with valid answer rejected: %v", err)
	}
	if len(prompts) != 1 {
		t.Fatalf("server asked %d prompts, want 1", len(prompts))
	}

	tooMany := func(name, instruction string, questions []string, echos []bool) ([]string, error) {
		return []string{"secret", "extra"}, nil
	}
	if _, err := srv.keyboardInteractiveCallback(fakeConnMeta{user: "alice"}, tooMany); err == nil {
		t.Fatal("mismatched answer count accepted")
	}
}

func TestPublicKeyCallback_MatchesAuthorizedKeys(t *testing.T) {
	authorized := ed25519Signer(t, 1)
	stranger := ed25519Signer(t, 2)

	path := filepath.Join(t.TempDir(), "authorized_keys")
	line := ssh.MarshalAuthorizedKey(authorized.PublicKey())
	if err := os.WriteFile(path, line, 0o600); err != nil {
		t.Fatalf("write authorized_keys: %v", err)
	}
	authKeys, err := sshkey.LoadAuthorizedKeys(path)
	if err != nil {
		t.Fatalf("LoadAuthorizedKeys failed: %v", err)
	}
	srv := &Server{authKeys: authKeys}

	perms, err := srv.publicKeyCallback(fakeConnMeta{user: "alice"}, authorized.PublicKey())
	if err != nil {
		t.Fatalf("authorized key rejected: %v", err)
	}
	if got := perms.Extensions["pubkey-fp"]; got != ssh.FingerprintSHA256(authorized.PublicKey()) {
		t.Fatalf("fingerprint extension is %q", got)
	}

	if _, err := srv.publicKeyCallback(fakeConnMeta{user: "alice"}, stranger.PublicKey()); err == nil {
		t.Fatal("unauthorized key accepted")
	}
}

func TestLogAuth_SkipsNoneProbe(t *testing.T) {
	ms := &memStore{}
	srv := &Server{store: ms}
	att := testAttempt()

	srv.logAuth(att, fakeConnMeta{user: "alice"}, "none", ssh.ErrNoAuth)
	if events := ms.snapshot(); len(events) != 0 {
		t.Fatalf("none probe produced %d audit events", len(events))
	}

	srv.logAuth(att, fakeConnMeta{user: "alice"}, "password", nil)
	events := ms.snapshot()
	if len(events) != 1 {
		t.Fatalf("got %d audit events, want 1", len(events))
	}
	ev := events[0]
	if ev.Outcome != model.OutcomeAccepted || ev.Method != "password" || ev.Username != "alice" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if ev.AttemptID != att.id {
		t.Fatalf("event attempt id %q does not match %q", ev.AttemptID, att.id)
	}
}

func TestAudit_NilStoreIsQuiet(t *testing.T) {
	srv := &Server{}
	srv.audit(testAttempt(), "alice", "password", model.OutcomeAccepted, "")
}
