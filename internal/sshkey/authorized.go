// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/fenholt/doorman/internal/logging"
)

// AuthorizedKeys is the set of public keys allowed to authenticate, keyed
// by marshaled wire blob. It is safe for concurrent use; ReloadFrom swaps
// the whole set so in-flight lookups see either the old or the new state.
type AuthorizedKeys struct {
	mu   sync.RWMutex
	keys map[string]string // wire blob -> comment
}

// LoadAuthorizedKeys reads an authorized_keys file. A missing file yields
// an empty set (public-key auth simply matches nothing); malformed lines
// are skipped with a warning so one bad entry cannot lock everyone out.
func LoadAuthorizedKeys(path string) (*AuthorizedKeys, error) {
	set := &AuthorizedKeys{keys: map[string]string{}}
	if err := set.ReloadFrom(path); err != nil {
		return nil, err
	}
	return set, nil
}

// ReloadFrom re-reads the file and replaces the set's contents.
func (a *AuthorizedKeys) ReloadFrom(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		data = nil
	} else if err != nil {
		return fmt.Errorf("failed to read authorized keys %s: %w", path, err)
	}

	keys := map[string]string{}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		key, comment, _, _, err := ssh.ParseAuthorizedKey(line)
		if err != nil {
			logging.Warnf("skipping authorized key %s:%d: %v", path, lineNo, err)
			continue
		}
		keys[string(key.Marshal())] = comment
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan authorized keys %s: %w", path, err)
	}

	a.mu.Lock()
	a.keys = keys
	a.mu.Unlock()
	return nil
}

// Match reports whether the offered key is authorized and returns its
// comment for audit lines.
func (a *AuthorizedKeys) Match(key ssh.PublicKey) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	comment, ok := a.keys[string(key.Marshal())]
	return comment, ok
}

// Len returns the number of authorized keys.
func (a *AuthorizedKeys) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.keys)
}
