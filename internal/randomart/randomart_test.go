// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package randomart

import (
	"bytes"
	"crypto/ed25519"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func testKey(t *testing.T, seed byte) ssh.PublicKey {
	t.Helper()
	priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	key, err := ssh.NewPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		t.Fatalf("NewPublicKey: %v", err)
	}
	return key
}

func TestRender_Deterministic(t *testing.T) {
	key := testKey(t, 0x42)
	first := Render(key)
	second := Render(key)
	if first != second {
		t.Fatalf("render not deterministic:\n%s\nvs\n%s", first, second)
	}
}

func TestRender_Structure(t *testing.T) {
	art := Render(testKey(t, 0x01))
	if !strings.HasSuffix(art, "+\n") {
		t.Fatalf("art should end with bottom border and newline: %q", art)
	}

	lines := strings.Split(strings.TrimRight(art, "\n"), "\n")
	if len(lines) != fieldY+2 {
		t.Fatalf("expected %d rows, got %d:\n%s", fieldY+2, len(lines), art)
	}
	for i, line := range lines {
		if len(line) != fieldX+2 {
			t.Errorf("row %d has width %d, want %d: %q", i, len(line), fieldX+2, line)
		}
	}

	if !strings.HasPrefix(lines[0], "+") || !strings.HasSuffix(lines[0], "+") {
		t.Errorf("bad top border: %q", lines[0])
	}
	if !strings.Contains(lines[0], "[ED25519 256]") {
		t.Errorf("top border missing key type: %q", lines[0])
	}
	if !strings.Contains(lines[len(lines)-1], "[SHA256]") {
		t.Errorf("bottom border missing digest name: %q", lines[len(lines)-1])
	}
	for _, line := range lines[1 : len(lines)-1] {
		if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
			t.Errorf("bad field row: %q", line)
		}
	}

	body := strings.Join(lines[1:len(lines)-1], "")
	if !strings.Contains(body, "S") {
		t.Error("start marker missing from field")
	}
	if !strings.Contains(body, "E") {
		t.Error("end marker missing from field")
	}
}

func TestRender_DistinctKeysDistinctArt(t *testing.T) {
	a := Render(testKey(t, 0x01))
	b := Render(testKey(t, 0x02))
	if a == b {
		t.Fatal("different keys produced identical art")
	}
}

func TestCombine_Empty(t *testing.T) {
	if got := Combine(' ', nil); got != "" {
		t.Fatalf("expected empty string for no keys, got %q", got)
	}
}

func TestCombine_SingleKeyMatchesRender(t *testing.T) {
	key := testKey(t, 0x07)
	if got, want := Combine(' ', []ssh.PublicKey{key}), Render(key); got != want {
		t.Fatalf("single-key combine differs from render:\n%s\nvs\n%s", got, want)
	}
}

func TestCombine_TwoKeysSideBySide(t *testing.T) {
	left := testKey(t, 0x0a)
	right := testKey(t, 0x0b)
	combined := Combine(' ', []ssh.PublicKey{left, right})

	if !strings.HasSuffix(combined, "\n") {
		t.Fatal("combined art must end with a newline")
	}
	rows := strings.Split(strings.TrimRight(combined, "\n"), "\n")
	if len(rows) != fieldY+2 {
		t.Fatalf("expected %d combined rows, got %d", fieldY+2, len(rows))
	}

	leftRows := strings.Split(strings.TrimRight(Render(left), "\n"), "\n")
	rightRows := strings.Split(strings.TrimRight(Render(right), "\n"), "\n")
	for i, row := range rows {
		want := leftRows[i] + " " + rightRows[i]
		if row != want {
			t.Fatalf("row %d mismatch:\ngot  %q\nwant %q", i, row, want)
		}
	}
}

func TestCombine_Deterministic(t *testing.T) {
	keys := []ssh.PublicKey{testKey(t, 0x10), testKey(t, 0x11), testKey(t, 0x12)}
	if Combine('|', keys) != Combine('|', keys) {
		t.Fatal("combine not deterministic")
	}
}
