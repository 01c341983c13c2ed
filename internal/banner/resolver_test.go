// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package banner

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/crypto/ssh"

	"github.com/fenholt/doorman/internal/randomart"
)

func hostKeys(t *testing.T, seeds ...byte) []ssh.PublicKey {
	t.Helper()
	keys := make([]ssh.PublicKey, 0, len(seeds))
	for _, seed := range seeds {
		priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
		key, err := ssh.NewPublicKey(priv.Public().(ed25519.PublicKey))
		if err != nil {
			t.Fatalf("NewPublicKey: %v", err)
		}
		keys = append(keys, key)
	}
	return keys
}

func TestResolve_Literal(t *testing.T) {
	b, err := (&Resolver{Source: Literal("Welcome to X")}).Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if b.IsZero() || b.Text != "Welcome to X" {
		t.Fatalf("unexpected banner: %+v", b)
	}
}

func TestResolve_NoSource(t *testing.T) {
	b, err := (&Resolver{}).Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !b.IsZero() {
		t.Fatalf("zero source should resolve to absent, got %+v", b)
	}
}

func TestResolve_MissingFileIsAbsent(t *testing.T) {
	src := FromPath(filepath.Join(t.TempDir(), "does-not-exist.txt"))
	b, err := (&Resolver{Source: src}).Resolve()
	if err != nil {
		t.Fatalf("missing file must not be an error, got %v", err)
	}
	if !b.IsZero() {
		t.Fatalf("missing file should resolve to absent, got %+v", b)
	}
}

func TestResolve_EmptyFileIsAbsent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.txt")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, err := (&Resolver{Source: FromPath(path)}).Resolve()
	if err != nil {
		t.Fatalf("empty file must not be an error, got %v", err)
	}
	if !b.IsZero() {
		t.Fatalf("empty file should resolve to absent, got %+v", b)
	}
}

func TestResolve_UnreadableFileIsConfigError(t *testing.T) {
	prev := readFile
	readFile = func(string) ([]byte, error) {
		return nil, fmt.Errorf("read banner: %w", os.ErrPermission)
	}
	defer func() { readFile = prev }()

	_, err := (&Resolver{Source: FromPath("/etc/banner.txt")}).Resolve()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Fatalf("cause not preserved through Unwrap: %v", err)
	}
}

func TestResolve_DirectoryIsConfigError(t *testing.T) {
	_, err := (&Resolver{Source: FromPath(t.TempDir())}).Resolve()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError for directory source, got %v", err)
	}
}

func TestResolve_AutoMatchesRandomArt(t *testing.T) {
	keys := hostKeys(t, 0x21, 0x22)
	r := &Resolver{Source: Auto(), HostKeys: keys}

	b, err := r.Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if want := randomart.Combine(' ', keys); b.Text != want {
		t.Fatalf("auto banner mismatch:\n%s\nvs\n%s", b.Text, want)
	}

	again, err := r.Resolve()
	if err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if again.Text != b.Text {
		t.Fatal("auto banner not stable across resolutions")
	}
}

func TestResolve_AutoWithoutKeysIsAbsent(t *testing.T) {
	b, err := (&Resolver{Source: Auto()}).Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !b.IsZero() {
		t.Fatalf("auto with no host keys should be absent, got %+v", b)
	}
}

func TestResolve_LangPassthrough(t *testing.T) {
	b, err := (&Resolver{Source: Literal("hi"), Lang: "en-US"}).Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if b.Lang != "en-US" {
		t.Fatalf("lang not passed through: %+v", b)
	}

	absent, err := (&Resolver{Lang: "en-US"}).Resolve()
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if absent.Lang != "" {
		t.Fatalf("absent banner should carry no lang: %+v", absent)
	}
}
