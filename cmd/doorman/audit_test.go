// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fenholt/doorman/internal/db"
	"github.com/fenholt/doorman/internal/model"
)

func TestAuditList_Empty(t *testing.T) {
	withTestEnv(t)

	root := NewRootCmd()
	root.SetArgs([]string{"audit", "list"})
	out := captureStdout(t, func() {
		if err := root.Execute(); err != nil {
			t.Errorf("audit list failed: %v", err)
		}
	})
	if !strings.Contains(out, "No authentication events") {
		t.Fatalf("expected empty-trail notice, got:\n%s", out)
	}
}

func TestAuditExportImport_Roundtrip(t *testing.T) {
	withTestEnv(t)

	ev := &model.AuthEvent{
		AttemptID:  "11111111-2222-3333-4444-555555555555",
		Timestamp:  time.Now().UTC(),
		RemoteAddr: "203.0.113.9:50022",
		Username:   "alice",
		Method:     "password",
		Outcome:    model.OutcomeAccepted,
		Banner:     model.BannerSent,
	}
	if err := db.RecordAuthEvent(context.Background(), ev); err != nil {
		t.Fatalf("record event: %v", err)
	}
	if err := db.AddKnownHostKey("door.example", "ssh-ed25519 AAAA test"); err != nil {
		t.Fatalf("add known host: %v", err)
	}

	root := NewRootCmd()
	root.SetArgs([]string{"audit", "export", "trail.json"})
	out := captureStdout(t, func() {
		if err := root.Execute(); err != nil {
			t.Errorf("audit export failed: %v", err)
		}
	})
	if !strings.Contains(out, "trail.json.zst") {
		t.Fatalf("export should report the .zst file name, got:\n%s", out)
	}
	if _, err := os.Stat("trail.json.zst"); err != nil {
		t.Fatalf("export file not written: %v", err)
	}

	data, err := readCompressedBackup("trail.json.zst")
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if len(data.AuthEvents) != 1 || data.AuthEvents[0].Username != "alice" {
		t.Fatalf("unexpected exported events: %+v", data.AuthEvents)
	}
	if len(data.KnownHosts) != 1 || data.KnownHosts[0].Hostname != "door.example" {
		t.Fatalf("unexpected exported hosts: %+v", data.KnownHosts)
	}

	root = NewRootCmd()
	root.SetArgs([]string{"audit", "import", "--yes", "trail.json.zst"})
	out = captureStdout(t, func() {
		if err := root.Execute(); err != nil {
			t.Errorf("audit import failed: %v", err)
		}
	})
	if !strings.Contains(out, "trail.json.zst") {
		t.Fatalf("import should report the source file, got:\n%s", out)
	}

	events, err := db.GetAuthEvents(context.Background(), 10)
	if err != nil {
		t.Fatalf("get events: %v", err)
	}
	if len(events) < 1 {
		t.Fatalf("trail lost after import roundtrip: %d events", len(events))
	}
}
