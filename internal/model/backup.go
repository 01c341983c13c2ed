// Copyright (c) 2026 Doorman Team
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.
package model

// BackupData is a container for all data exported by `doorman audit export`.
// It holds slices of the persisted models so a trail can be moved between
// database backends.
type BackupData struct {
	// SchemaVersion helps in handling migrations during restore.
	SchemaVersion int `json:"schema_version"`

	// Data from each table.
	KnownHosts []KnownHost `json:"known_hosts"`
	AuthEvents []AuthEvent `json:"auth_events"`
}

// KnownHost represents a trusted host's public key.
type KnownHost struct {
	Hostname string `json:"hostname"`
	Key      string `json:"key"`
}
