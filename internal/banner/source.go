// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

// Package banner resolves the server's welcome banner from its configured
// source. A source is one of: literal text, the auto-generation sentinel,
// or a reference to a file (given as a path, an open file, a URL, or URL
// text). Resolution yields either a banner or the absent state; absent is
// a normal outcome, not an error.
package banner

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// AutoSentinel is the reserved configuration value requesting an
// auto-generated banner: the random art of the server's host keys.
const AutoSentinel = "#auto-welcome-banner"

type sourceKind int

const (
	sourceNone sourceKind = iota
	sourceLiteral
	sourceAuto
	sourceFile
)

// Source is a normalized banner source. The zero value means no banner is
// configured. Exactly one shape is active; construct values through the
// functions below rather than assembling them by hand.
type Source struct {
	kind sourceKind
	text string // literal text
	path string // filesystem path for file sources
}

// Literal returns a source for fixed banner text. The empty string yields
// the unconfigured source, and the reserved sentinel value yields the auto
// source, so resolution behaves identically however the value arrived.
func Literal(text string) Source {
	if text == "" {
		return Source{}
	}
	if strings.EqualFold(strings.TrimSpace(text), AutoSentinel) {
		return Auto()
	}
	return Source{kind: sourceLiteral, text: text}
}

// Auto returns the source requesting host-key random art.
func Auto() Source {
	return Source{kind: sourceAuto}
}

// FromPath returns a source reading banner text from a file path.
func FromPath(path string) Source {
	return Source{kind: sourceFile, path: path}
}

// FromFile returns a source reading banner text from an open file's path.
// The handle is only consulted for its name; resolution re-reads the file.
func FromFile(f *os.File) Source {
	return FromPath(f.Name())
}

// FromURL returns a source reading banner text from a file:// URL. Other
// schemes cannot be normalized to a filesystem path and are rejected.
func FromURL(u *url.URL) (Source, error) {
	if !strings.EqualFold(u.Scheme, "file") {
		return Source{}, &ConfigError{Value: u.String(), Err: fmt.Errorf("unsupported banner URL scheme %q", u.Scheme)}
	}
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	if path == "" {
		return Source{}, &ConfigError{Value: u.String(), Err: fmt.Errorf("banner URL has no path")}
	}
	return FromPath(path), nil
}

// Parse normalizes a raw configuration string into a Source. Empty means no
// banner; the sentinel requests auto-generation; "file:" URL text is treated
// as a file reference; everything else is literal banner text.
func Parse(raw string) (Source, error) {
	if raw == "" {
		return Source{}, nil
	}
	trimmed := strings.TrimSpace(raw)
	if strings.EqualFold(trimmed, AutoSentinel) {
		return Auto(), nil
	}
	if strings.HasPrefix(trimmed, "file:") {
		u, err := url.Parse(trimmed)
		if err != nil {
			return Source{}, &ConfigError{Value: raw, Err: err}
		}
		return FromURL(u)
	}
	return Literal(raw), nil
}

// IsZero reports whether no banner source is configured.
func (s Source) IsZero() bool {
	return s.kind == sourceNone
}

// String describes the source for log lines; it never exposes literal
// banner content beyond a short prefix.
func (s Source) String() string {
	switch s.kind {
	case sourceLiteral:
		text := s.text
		if len(text) > 24 {
			text = text[:24] + "..."
		}
		return fmt.Sprintf("literal %q", text)
	case sourceAuto:
		return "auto (host key art)"
	case sourceFile:
		return fmt.Sprintf("file %s", s.path)
	}
	return "none"
}
