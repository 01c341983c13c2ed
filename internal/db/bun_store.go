// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/fenholt/doorman/internal/model"
)

// KnownHostModel maps the `known_hosts` table for Bun queries.
type KnownHostModel struct {
	bun.BaseModel `bun:"table:known_hosts"`
	Hostname      string `bun:"hostname,pk"`
	Key           string `bun:"key"`
}

// AuthEventModel maps the `auth_events` table for Bun queries.
type AuthEventModel struct {
	bun.BaseModel `bun:"table:auth_events"`
	ID            int       `bun:"id,pk,autoincrement"`
	AttemptID     string    `bun:"attempt_id"`
	Timestamp     time.Time `bun:"timestamp"`
	RemoteAddr    string    `bun:"remote_addr"`
	Username      string    `bun:"username"`
	Method        string    `bun:"method"`
	Outcome       string    `bun:"outcome"`
	Banner        string    `bun:"banner"`
	Detail        string    `bun:"detail"`
}

func authEventModelToModel(m AuthEventModel) model.AuthEvent {
	return model.AuthEvent{
		ID:         m.ID,
		AttemptID:  m.AttemptID,
		Timestamp:  m.Timestamp,
		RemoteAddr: m.RemoteAddr,
		Username:   m.Username,
		Method:     m.Method,
		Outcome:    model.AuthOutcome(m.Outcome),
		Banner:     model.BannerState(m.Banner),
		Detail:     m.Detail,
	}
}

func authEventModelFromModel(ev model.AuthEvent) AuthEventModel {
	return AuthEventModel{
		ID:         ev.ID,
		AttemptID:  ev.AttemptID,
		Timestamp:  ev.Timestamp,
		RemoteAddr: ev.RemoteAddr,
		Username:   ev.Username,
		Method:     ev.Method,
		Outcome:    string(ev.Outcome),
		Banner:     string(ev.Banner),
		Detail:     ev.Detail,
	}
}

// bunStore implements Store on top of a long-lived *bun.DB. The dialect is
// baked into the bun.DB at construction time, so one implementation covers
// SQLite, PostgreSQL and MySQL.
type bunStore struct {
	bun *bun.DB
}

func (s *bunStore) GetKnownHostKey(hostname string) (string, error) {
	ctx := context.Background()
	var kh KnownHostModel
	err := s.bun.NewSelect().Model(&kh).Where("hostname = ?", hostname).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return kh.Key, nil
}

// AddKnownHostKey pins a host key. Pinning a host again replaces whatever key
// was stored before, so a rotated server key only needs one re-trust.
func (s *bunStore) AddKnownHostKey(hostname, key string) error {
	ctx := context.Background()
	kh := KnownHostModel{Hostname: hostname, Key: key}
	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*KnownHostModel)(nil)).Where("hostname = ?", hostname).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&kh).Exec(ctx)
		return MapDBError(err)
	})
}

func (s *bunStore) DeleteKnownHostKey(hostname string) error {
	ctx := context.Background()
	_, err := s.bun.NewDelete().Model((*KnownHostModel)(nil)).Where("hostname = ?", hostname).Exec(ctx)
	return err
}

func (s *bunStore) GetAllKnownHosts() ([]model.KnownHost, error) {
	ctx := context.Background()
	var khs []KnownHostModel
	if err := s.bun.NewSelect().Model(&khs).Order("hostname ASC").Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.KnownHost, 0, len(khs))
	for _, kh := range khs {
		out = append(out, model.KnownHost{Hostname: kh.Hostname, Key: kh.Key})
	}
	return out, nil
}

// RecordAuthEvent appends one event to the audit trail. The database assigns
// the ID, which is written back into ev. A zero timestamp is filled with the
// current time.
func (s *bunStore) RecordAuthEvent(ctx context.Context, ev *model.AuthEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	m := authEventModelFromModel(*ev)
	m.ID = 0
	if _, err := s.bun.NewInsert().Model(&m).Exec(ctx); err != nil {
		return MapDBError(err)
	}
	ev.ID = m.ID
	return nil
}

// GetAuthEvents returns recorded events newest first. A limit of zero or
// less returns the full trail.
func (s *bunStore) GetAuthEvents(ctx context.Context, limit int) ([]model.AuthEvent, error) {
	var evs []AuthEventModel
	q := s.bun.NewSelect().Model(&evs).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	out := make([]model.AuthEvent, 0, len(evs))
	for _, m := range evs {
		out = append(out, authEventModelToModel(m))
	}
	return out, nil
}

// ExportDataForBackup exports all tables' data into a model.BackupData using
// a single transaction so the snapshot is consistent.
func (s *bunStore) ExportDataForBackup() (*model.BackupData, error) {
	ctx := context.Background()
	var backup *model.BackupData
	err := WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		backup = &model.BackupData{SchemaVersion: 1}

		var khs []KnownHostModel
		if err := tx.NewSelect().Model(&khs).Order("hostname ASC").Scan(ctx); err != nil {
			return err
		}
		for _, kh := range khs {
			backup.KnownHosts = append(backup.KnownHosts, model.KnownHost{Hostname: kh.Hostname, Key: kh.Key})
		}

		var evs []AuthEventModel
		if err := tx.NewSelect().Model(&evs).Order("id ASC").Scan(ctx); err != nil {
			return err
		}
		for _, m := range evs {
			backup.AuthEvents = append(backup.AuthEvents, authEventModelToModel(m))
		}
		return nil
	})
	return backup, err
}

// ImportDataFromBackup performs a full wipe-and-replace using a single
// transaction. Event IDs from the backup are preserved.
func (s *bunStore) ImportDataFromBackup(backup *model.BackupData) error {
	ctx := context.Background()
	return WithTx(ctx, s.bun, func(ctx context.Context, tx bun.Tx) error {
		for _, table := range []string{"auth_events", "known_hosts"} {
			if _, err := ExecRaw(ctx, tx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
				return err
			}
		}
		for _, kh := range backup.KnownHosts {
			m := KnownHostModel{Hostname: kh.Hostname, Key: kh.Key}
			if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		for _, ev := range backup.AuthEvents {
			m := authEventModelFromModel(ev)
			if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
				return MapDBError(err)
			}
		}
		return nil
	})
}

func (s *bunStore) Close() error {
	return s.bun.Close()
}
