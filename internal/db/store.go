// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"

	"github.com/fenholt/doorman/internal/model"
)

// Store defines the interface for all database operations in Doorman.
// This allows for multiple database backends to be implemented.
type Store interface {
	// Known host methods. GetKnownHostKey returns an empty string when the
	// host has no pinned key.
	GetKnownHostKey(hostname string) (string, error)
	AddKnownHostKey(hostname, key string) error
	DeleteKnownHostKey(hostname string) error
	GetAllKnownHosts() ([]model.KnownHost, error)

	// Audit trail methods.
	RecordAuthEvent(ctx context.Context, ev *model.AuthEvent) error
	GetAuthEvents(ctx context.Context, limit int) ([]model.AuthEvent, error)

	// Backup and restore.
	ExportDataForBackup() (*model.BackupData, error)
	ImportDataFromBackup(backup *model.BackupData) error

	// Close releases the underlying connection pool.
	Close() error
}
