// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package sshd

import (
	"context"
	"math"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fenholt/doorman/internal/logging"
)

const reloadDebounce = 100 * time.Millisecond

// watchAuthorizedKeys reloads the authorized keys file when it changes on
// disk. The parent directory is watched because editors and provisioning
// tools replace the file rather than write it in place; reloads are
// debounced so a burst of events triggers a single read.
func (s *Server) watchAuthorizedKeys(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Errorf("failed to create file watcher: %v", err)
		return
	}
	defer func() { _ = watcher.Close() }()

	path := filepath.Clean(s.cfg.AuthorizedKeysFile)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logging.Errorf("failed to watch %s: %v", filepath.Dir(path), err)
		return
	}

	reload := time.AfterFunc(math.MaxInt64, func() {
		if err := s.authKeys.ReloadFrom(path); err != nil {
			logging.Errorf("failed to reload authorized keys: %v", err)
			return
		}
		logging.Infof("reloaded authorized keys from %s (%d keys)", path, s.authKeys.Len())
	})
	reload.Stop()
	defer reload.Stop()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			reload.Reset(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Warnf("file watcher error: %v", err)
		case <-ctx.Done():
			return
		}
	}
}
