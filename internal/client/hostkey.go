// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package client

import (
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// TrustStore looks up the pinned public key for a host. The doorman
// database implements it; tests substitute fakes.
type TrustStore interface {
	GetKnownHostKey(hostname string) (string, error)
}

// TrustCallback verifies presented host keys against the trust store.
// Unknown hosts are rejected with a hint to run 'doorman trust-host';
// mismatches are rejected loudly.
func TrustCallback(store TrustStore) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		// The hostname passed to the callback can include the port. We need to strip it
		// to ensure we're looking up the correct key in our database.
		host, _, err := net.SplitHostPort(hostname)
		if err != nil {
			host = hostname
		}

		// The key is presented in the format "ssh-ed25519 AAA..."
		presentedKey := string(ssh.MarshalAuthorizedKey(key))

		knownKey, err := store.GetKnownHostKey(host)
		if err != nil {
			return fmt.Errorf("failed to query known_hosts database: %w", err)
		}

		// If we don't have a key, this is the first connection.
		if knownKey == "" {
			return fmt.Errorf("unknown host key for %s. run 'doorman trust-host' to add it", host)
		}

		// If the key exists, it must match exactly.
		if knownKey != presentedKey {
			return fmt.Errorf("!!! HOST KEY MISMATCH FOR %s !!!\nRemote key presented: %s\nThis could be a man-in-the-middle attack", host, presentedKey)
		}

		return nil
	}
}

// hostKeyProbeErr marks the deliberate handshake abort used by
// GetRemoteHostKey once the key has been captured.
const hostKeyProbeErr = "doorman: successfully retrieved host key"

// GetRemoteHostKey connects to a host just to retrieve its public key.
func GetRemoteHostKey(host string) (ssh.PublicKey, error) {
	keyChan := make(chan ssh.PublicKey, 1)

	config := &ssh.ClientConfig{
		// We don't need to authenticate for this, just start the handshake.
		User: "doorman-probe",
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			// We got the key, send it back on the channel.
			keyChan <- key
			// Return a specific error to gracefully stop the handshake.
			return fmt.Errorf("%s", hostKeyProbeErr)
		},
		Timeout: 5 * time.Second,
	}

	addr := normalizeAddr(host)

	// We expect ssh.Dial to fail with our specific error.
	_, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		if strings.Contains(err.Error(), hostKeyProbeErr) {
			// Success, the key is in the channel.
			return <-keyChan, nil
		}
		// It's a different, real error (e.g., connection refused).
		return nil, fmt.Errorf("failed to connect to %s: %w", host, err)
	}

	return nil, fmt.Errorf("ssh.Dial succeeded unexpectedly, could not retrieve key")
}
