// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package banner

import (
	"errors"
	"io/fs"
	"os"

	"golang.org/x/crypto/ssh"

	"github.com/fenholt/doorman/internal/randomart"
)

// autoSeparator joins per-key art blocks in auto-generated banners.
const autoSeparator = ' '

// readFile is swappable so tests can inject read failures.
var readFile = os.ReadFile

// Banner is a resolved welcome banner. The zero value is the absent state:
// nothing should be sent.
type Banner struct {
	Text string
	Lang string
}

// IsZero reports whether the banner is absent.
func (b Banner) IsZero() bool {
	return b.Text == ""
}

// Resolver turns a Source into a Banner. HostKeys is consulted only for the
// auto source and is never mutated, so one Resolver may serve concurrent
// attempts. Lang is passed through unchanged; the resolver computes none.
type Resolver struct {
	Source   Source
	HostKeys []ssh.PublicKey
	Lang     string
}

// Resolve reads the configured source. File sources that do not exist or
// are empty yield the absent banner; any other read failure is a
// *ConfigError and must abort the attempt's setup. Resolution takes no
// locks and may be invoked once per authentication attempt.
func (r *Resolver) Resolve() (Banner, error) {
	switch r.Source.kind {
	case sourceLiteral:
		return r.present(r.Source.text), nil
	case sourceAuto:
		return r.present(randomart.Combine(autoSeparator, r.HostKeys)), nil
	case sourceFile:
		data, err := readFile(r.Source.path)
		if errors.Is(err, fs.ErrNotExist) {
			return Banner{}, nil
		}
		if err != nil {
			return Banner{}, &ConfigError{Value: r.Source.path, Err: err}
		}
		return r.present(string(data)), nil
	}
	return Banner{}, nil
}

func (r *Resolver) present(text string) Banner {
	if text == "" {
		return Banner{}
	}
	return Banner{Text: text, Lang: r.Lang}
}
