// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package banner

import "fmt"

// ConfigError reports a banner source that cannot be used: an unreadable
// file, a malformed URL, an unsupported scheme. A missing or empty file is
// not a ConfigError; that resolves to the absent banner instead. Callers
// detect it with errors.As and should abort the attempt's setup.
type ConfigError struct {
	Value string // the offending source, as configured
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("banner source %q: %v", e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
