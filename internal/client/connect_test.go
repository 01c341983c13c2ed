// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package client

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"
)

func TestConnect_TimeoutSurfacesAsAttemptTimeout(t *testing.T) {
	// A listener that accepts and then says nothing stalls the version
	// exchange until the attempt deadline fires.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
		}
	}()

	_, err = Connect(context.Background(), ln.Addr().String(), Options{
		User:            "alice",
		Password:        "secret",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         200 * time.Millisecond,
	})

	var terr *AttemptTimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *AttemptTimeoutError, got %v", err)
	}
	if terr.Timeout != 200*time.Millisecond {
		t.Fatalf("timeout not recorded: %+v", terr)
	}

	var perr *ProtocolError
	if errors.As(err, &perr) {
		t.Fatal("timeout must not be a protocol violation")
	}
}

func TestAttempt_RefusesWithoutHostKeyVerification(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	_, err := Attempt(context.Background(), clientConn, "door:22", Options{User: "alice", Password: "x"})
	if err == nil {
		t.Fatal("expected refusal without host key verification")
	}
}

func TestAttempt_RequiresAuthMethod(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	clientConn, serverConn := net.Pipe()
	defer serverConn.Close()

	_, err := Attempt(context.Background(), clientConn, "door:22", Options{
		User:            "alice",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	})
	if err == nil {
		t.Fatal("expected error when no auth method is available")
	}
}

func TestNormalizeAddr(t *testing.T) {
	if got := normalizeAddr("door.example.com"); got != "door.example.com:22" {
		t.Fatalf("unexpected addr: %s", got)
	}
	if got := normalizeAddr("door.example.com:2022"); got != "door.example.com:2022" {
		t.Fatalf("explicit port mangled: %s", got)
	}
}
