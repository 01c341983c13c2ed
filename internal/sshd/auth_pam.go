// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build pam

package sshd

import (
	pam "github.com/msteinert/pam/v2"

	"github.com/fenholt/doorman/internal/logging"
)

// pamAuthenticate runs one PAM conversation, answering every hidden
// prompt with the offered password and ignoring informational messages.
func pamAuthenticate(service, user, password string) bool {
	t, err := pam.StartFunc(service, user, func(style pam.Style, msg string) (string, error) {
		switch style {
		case pam.PromptEchoOff:
			return password, nil
		default:
			return "", nil
		}
	})
	if err != nil {
		logging.Warnf("pam start failed for %q: %v", user, err)
		return false
	}
	defer func() { _ = t.End() }()

	return t.Authenticate(0) == nil
}
