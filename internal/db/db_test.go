package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fenholt/doorman/internal/model"
)

func newTestDB(t *testing.T) string {
	t.Helper()
	dsn := "file:test_" + t.Name() + "?mode=memory&cache=shared"
	if err := InitDB("sqlite", dsn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() {
		if err := CloseDB(); err != nil {
			t.Errorf("CloseDB failed: %v", err)
		}
	})
	return dsn
}

func TestInitDB_UnsupportedType(t *testing.T) {
	if err := InitDB("oracle", "whatever"); err == nil {
		t.Fatalf("expected error for unsupported database type")
	}
}

func TestKnownHosts_RoundTrip(t *testing.T) {
	newTestDB(t)

	key, err := GetKnownHostKey("alpha.example.com")
	if err != nil {
		t.Fatalf("GetKnownHostKey failed: %v", err)
	}
	if key != "" {
		t.Fatalf("expected empty key for unknown host, got %q", key)
	}

	if err := AddKnownHostKey("alpha.example.com", "ssh-ed25519 AAAAalpha"); err != nil {
		t.Fatalf("AddKnownHostKey failed: %v", err)
	}
	if err := AddKnownHostKey("beta.example.com", "ssh-ed25519 AAAAbeta"); err != nil {
		t.Fatalf("AddKnownHostKey failed: %v", err)
	}

	key, err = GetKnownHostKey("alpha.example.com")
	if err != nil || key != "ssh-ed25519 AAAAalpha" {
		t.Fatalf("GetKnownHostKey = %q, %v", key, err)
	}

	// Pinning again replaces the stored key.
	if err := AddKnownHostKey("alpha.example.com", "ssh-ed25519 BBBBrotated"); err != nil {
		t.Fatalf("re-pin failed: %v", err)
	}
	key, _ = GetKnownHostKey("alpha.example.com")
	if key != "ssh-ed25519 BBBBrotated" {
		t.Fatalf("expected rotated key, got %q", key)
	}

	hosts, err := GetAllKnownHosts()
	if err != nil {
		t.Fatalf("GetAllKnownHosts failed: %v", err)
	}
	if len(hosts) != 2 || hosts[0].Hostname != "alpha.example.com" || hosts[1].Hostname != "beta.example.com" {
		t.Fatalf("unexpected host listing: %+v", hosts)
	}

	if err := DeleteKnownHostKey("alpha.example.com"); err != nil {
		t.Fatalf("DeleteKnownHostKey failed: %v", err)
	}
	key, _ = GetKnownHostKey("alpha.example.com")
	if key != "" {
		t.Fatalf("expected key gone after delete, got %q", key)
	}
}

func TestRecordAuthEvent_BackfillsIDAndTimestamp(t *testing.T) {
	newTestDB(t)
	ctx := context.Background()

	ev := &model.AuthEvent{
		AttemptID:  "attempt-1",
		RemoteAddr: "203.0.113.7:50000",
		Username:   "alice",
		Method:     "password",
		Outcome:    model.OutcomeAccepted,
		Banner:     model.BannerSent,
	}
	if err := RecordAuthEvent(ctx, ev); err != nil {
		t.Fatalf("RecordAuthEvent failed: %v", err)
	}
	if ev.ID == 0 {
		t.Fatalf("expected backfilled event ID")
	}
	if ev.Timestamp.IsZero() {
		t.Fatalf("expected backfilled timestamp")
	}

	second := &model.AuthEvent{
		AttemptID: "attempt-2",
		Method:    "publickey",
		Outcome:   model.OutcomeRejected,
		Banner:    model.BannerSuppressed,
		Detail:    "public key not authorized",
	}
	if err := RecordAuthEvent(ctx, second); err != nil {
		t.Fatalf("RecordAuthEvent failed: %v", err)
	}
	if second.ID <= ev.ID {
		t.Fatalf("expected increasing IDs, got %d then %d", ev.ID, second.ID)
	}
}

func TestGetAuthEvents_NewestFirst(t *testing.T) {
	newTestDB(t)
	ctx := context.Background()

	for i, method := range []string{"password", "publickey", "keyboard-interactive"} {
		ev := &model.AuthEvent{
			AttemptID: fmt.Sprintf("attempt-%d", i),
			Username:  "alice",
			Method:    method,
			Outcome:   model.OutcomeRejected,
			Banner:    model.BannerSent,
		}
		if err := RecordAuthEvent(ctx, ev); err != nil {
			t.Fatalf("RecordAuthEvent failed: %v", err)
		}
	}

	events, err := GetAuthEvents(ctx, 2)
	if err != nil {
		t.Fatalf("GetAuthEvents failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Method != "keyboard-interactive" || events[1].Method != "publickey" {
		t.Fatalf("expected newest first, got %s then %s", events[0].Method, events[1].Method)
	}

	all, err := GetAuthEvents(ctx, 0)
	if err != nil {
		t.Fatalf("GetAuthEvents failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected full trail, got %d events", len(all))
	}
}

func TestBackup_ExportImportRoundTrip(t *testing.T) {
	newTestDB(t)
	ctx := context.Background()

	if err := AddKnownHostKey("gamma.example.com", "ssh-ed25519 AAAAgamma"); err != nil {
		t.Fatalf("AddKnownHostKey failed: %v", err)
	}
	ev := &model.AuthEvent{
		AttemptID: "attempt-backup",
		Timestamp: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		Username:  "bob",
		Method:    "password",
		Outcome:   model.OutcomeAccepted,
		Banner:    model.BannerSent,
	}
	if err := RecordAuthEvent(ctx, ev); err != nil {
		t.Fatalf("RecordAuthEvent failed: %v", err)
	}

	backup, err := ExportDataForBackup()
	if err != nil {
		t.Fatalf("ExportDataForBackup failed: %v", err)
	}
	if backup.SchemaVersion != 1 || len(backup.KnownHosts) != 1 || len(backup.AuthEvents) != 1 {
		t.Fatalf("unexpected backup contents: %+v", backup)
	}

	// Restore into a second database that already holds unrelated rows; the
	// import must replace them.
	other, err := NewStoreFromDSN("sqlite", "file:test_restore_target?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewStoreFromDSN failed: %v", err)
	}
	defer func() { _ = other.Close() }()
	if err := other.AddKnownHostKey("stale.example.com", "ssh-rsa OLD"); err != nil {
		t.Fatalf("seeding restore target failed: %v", err)
	}

	if err := other.ImportDataFromBackup(backup); err != nil {
		t.Fatalf("ImportDataFromBackup failed: %v", err)
	}

	hosts, err := other.GetAllKnownHosts()
	if err != nil {
		t.Fatalf("GetAllKnownHosts failed: %v", err)
	}
	if len(hosts) != 1 || hosts[0].Hostname != "gamma.example.com" {
		t.Fatalf("expected wipe-and-replace, got %+v", hosts)
	}

	events, err := other.GetAuthEvents(ctx, 0)
	if err != nil {
		t.Fatalf("GetAuthEvents failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 restored event, got %d", len(events))
	}
	got := events[0]
	if got.ID != ev.ID || got.AttemptID != ev.AttemptID || !got.Timestamp.Equal(ev.Timestamp) {
		t.Fatalf("restored event differs: got %+v, want %+v", got, ev)
	}
	if got.Outcome != model.OutcomeAccepted || got.Banner != model.BannerSent {
		t.Fatalf("restored event lost its classification: %+v", got)
	}
}

func TestImportDataFromBackup_DuplicateHostRollsBack(t *testing.T) {
	newTestDB(t)

	backup := &model.BackupData{
		SchemaVersion: 1,
		KnownHosts: []model.KnownHost{
			{Hostname: "twin.example.com", Key: "ssh-ed25519 AAAAone"},
			{Hostname: "twin.example.com", Key: "ssh-ed25519 AAAAtwo"},
		},
	}
	if err := ImportDataFromBackup(backup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	// The failed import must not leave partial rows behind.
	hosts, err := GetAllKnownHosts()
	if err != nil {
		t.Fatalf("GetAllKnownHosts failed: %v", err)
	}
	if len(hosts) != 0 {
		t.Fatalf("expected rollback to leave no hosts, got %+v", hosts)
	}
}

func TestNewStoreFromDSN_OpenError(t *testing.T) {
	orig := sqlOpenFunc
	sqlOpenFunc = func(driverName, dsn string) (*sql.DB, error) {
		return nil, errors.New("boom")
	}
	defer func() { sqlOpenFunc = orig }()

	if _, err := NewStoreFromDSN("sqlite", ":memory:"); err == nil {
		t.Fatalf("expected open error to propagate")
	}
}

func TestNewStoreFromDSN_PoolDefaults(t *testing.T) {
	t.Setenv("DOORMAN_DB_MAX_OPEN_CONNS", "")
	t.Setenv("DOORMAN_DB_MAX_IDLE_CONNS", "")

	s, err := NewStoreFromDSN("sqlite", "file:test_pool?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewStoreFromDSN returned error: %v", err)
	}
	defer func() { _ = s.Close() }()

	bs, ok := s.(*bunStore)
	if !ok {
		t.Fatalf("expected *bunStore, got %T", s)
	}
	if got := bs.bun.DB.Stats().MaxOpenConnections; got != 25 {
		t.Fatalf("MaxOpenConnections = %d; want 25", got)
	}
}

func TestNewStoreFromDSN_MemoryClampsPool(t *testing.T) {
	s, err := NewStoreFromDSN("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("NewStoreFromDSN returned error: %v", err)
	}
	defer func() { _ = s.Close() }()

	bs := s.(*bunStore)
	if got := bs.bun.DB.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf("MaxOpenConnections = %d; want 1 for :memory:", got)
	}
}

func TestRunMigrations_SecondRunIsNoop(t *testing.T) {
	s, err := NewStoreFromDSN("sqlite", "file:test_migrate_twice?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewStoreFromDSN failed: %v", err)
	}
	defer func() { _ = s.Close() }()

	bs := s.(*bunStore)
	if err := RunMigrations(bs.bun.DB, "sqlite"); err != nil {
		t.Fatalf("re-running migrations failed: %v", err)
	}

	var n int
	if err := bs.bun.DB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("counting applied migrations failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 recorded migrations, got %d", n)
	}
}

func TestRunDBMaintenance_Sqlite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doorman.db")
	s, err := NewStoreFromDSN("sqlite", path)
	if err != nil {
		t.Fatalf("NewStoreFromDSN failed: %v", err)
	}
	if err := s.AddKnownHostKey("delta.example.com", "ssh-ed25519 AAAAdelta"); err != nil {
		t.Fatalf("AddKnownHostKey failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := RunDBMaintenance("sqlite", path); err != nil {
		t.Fatalf("RunDBMaintenance failed: %v", err)
	}
	if err := RunDBMaintenance("mssql", path); err == nil {
		t.Fatalf("expected error for unsupported maintenance type")
	}
}
