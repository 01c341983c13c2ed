// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

// Package logging provides the shared application logger. Library packages
// log through the helper functions so output routing stays in one place.
package logging

import (
	"os"

	clog "github.com/charmbracelet/log"
)

// L is the package-level logger. Callers should use the helper functions
// below; tests may swap L for a buffer-backed logger.
var L = clog.NewWithOptions(os.Stderr, clog.Options{ReportTimestamp: true})

// SetDebug controls whether calls to Debugf will emit output.
func SetDebug(enabled bool) {
	if enabled {
		L.SetLevel(clog.DebugLevel)
		return
	}
	L.SetLevel(clog.InfoLevel)
}

// Debugf logs a debug-level formatted message.
// Debugf is a no-op unless SetDebug(true) has been called.
func Debugf(format string, v ...any) {
	L.Debugf(format, v...)
}

// Infof logs an info-level formatted message.
func Infof(format string, v ...any) {
	L.Infof(format, v...)
}

// Warnf logs a warning-level formatted message.
func Warnf(format string, v ...any) {
	L.Warnf(format, v...)
}

// Errorf logs an error-level formatted message.
func Errorf(format string, v ...any) {
	L.Errorf(format, v...)
}

// Printf is a convenience alias for Infof.
func Printf(format string, v ...any) {
	Infof(format, v...)
}
