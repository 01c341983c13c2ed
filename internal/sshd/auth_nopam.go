// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

//go:build !pam

package sshd

import "github.com/fenholt/doorman/internal/logging"

// pamAuthenticate is the stub for builds without the pam tag. It refuses
// everything so a binary missing PAM support fails closed instead of open.
func pamAuthenticate(service, user, password string) bool {
	logging.Warnf("pam service %q configured but this build has no pam support", service)
	return false
}
