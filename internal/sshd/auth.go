// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package sshd

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/ssh"

	"github.com/fenholt/doorman/internal/logging"
	"github.com/fenholt/doorman/internal/metrics"
	"github.com/fenholt/doorman/internal/model"
)

const auditTimeout = 3 * time.Second

func (s *Server) passwordCallback(conn ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
	return s.verifyPassword(conn.User(), string(password))
}

// keyboardInteractiveCallback runs the single password round doorman
// offers over keyboard-interactive.
func (s *Server) keyboardInteractiveCallback(conn ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
	answers, err := challenge("", "", []string{"Password: "}, []bool{false})
	if err != nil {
		return nil, err
	}
	if len(answers) != 1 {
		return nil, fmt.Errorf("expected one answer, got %d", len(answers))
	}
	return s.verifyPassword(conn.User(), answers[0])
}

// verifyPassword checks the offered credentials against the static user
// table first and the PAM service second. Users present in the table are
// never passed on to PAM, so a table entry always wins.
func (s *Server) verifyPassword(user, password string) (*ssh.Permissions, error) {
	if hash, ok := s.cfg.Users[user]; ok {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("invalid credentials")
	}
	if s.cfg.PAMService != "" && pamAuthenticate(s.cfg.PAMService, user, password) {
		return nil, nil
	}
	return nil, fmt.Errorf("invalid credentials")
}

func (s *Server) publicKeyCallback(conn ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
	comment, ok := s.authKeys.Match(key)
	if !ok {
		return nil, fmt.Errorf("public key not authorized")
	}
	return &ssh.Permissions{
		Extensions: map[string]string{
			"pubkey-fp":      ssh.FingerprintSHA256(key),
			"pubkey-comment": comment,
		},
	}, nil
}

// logAuth receives the verdict of every authentication round. The "none"
// probe clients send to discover available methods is not a credential
// attempt and stays off the audit trail.
func (s *Server) logAuth(att *attempt, conn ssh.ConnMetadata, method string, err error) {
	if method == "none" {
		return
	}
	outcome := model.OutcomeAccepted
	detail := ""
	if err != nil {
		outcome = model.OutcomeRejected
		detail = err.Error()
	}
	metrics.AuthAttemptsTotal.WithLabelValues(method, string(outcome)).Inc()
	if err != nil {
		logging.Infof("auth %s for %s@%s via %s: %v", outcome, conn.User(), att.remoteAddr, method, err)
	} else {
		logging.Infof("auth %s for %s@%s via %s", outcome, conn.User(), att.remoteAddr, method)
	}
	s.audit(att, conn.User(), method, outcome, detail)
}

// audit persists one event. Auditing is best-effort: a down database must
// not take authentication down with it.
func (s *Server) audit(att *attempt, username, method string, outcome model.AuthOutcome, detail string) {
	if s.store == nil {
		return
	}
	ev := &model.AuthEvent{
		AttemptID:  att.id,
		Timestamp:  time.Now().UTC(),
		RemoteAddr: att.remoteAddr,
		Username:   username,
		Method:     method,
		Outcome:    outcome,
		Banner:     att.bannerState(),
		Detail:     detail,
	}
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()
	if err := s.store.RecordAuthEvent(ctx, ev); err != nil {
		logging.Warnf("failed to record auth event: %v", err)
	}
}
