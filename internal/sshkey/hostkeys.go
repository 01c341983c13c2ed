// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package sshkey

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/crypto/ssh"
)

// LoadSigner reads and parses one unencrypted private host key file.
func LoadSigner(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read host key %s: %w", path, err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse host key %s: %w", path, err)
	}
	return signer, nil
}

// LoadSigners loads all configured host keys, preserving order. The order
// matters: it is the order keys are offered during key exchange and the
// order their art appears in auto-generated banners.
func LoadSigners(paths []string) ([]ssh.Signer, error) {
	signers := make([]ssh.Signer, 0, len(paths))
	for _, path := range paths {
		signer, err := LoadSigner(path)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}
	return signers, nil
}

// EnsureSigner loads the host key at path, generating and persisting a new
// ed25519 key there first when the file does not exist.
func EnsureSigner(path string) (ssh.Signer, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		_, privPEM, genErr := GenerateAndMarshalEd25519Key("doorman host key", "")
		if genErr != nil {
			return nil, genErr
		}
		if writeErr := os.WriteFile(path, []byte(privPEM), 0o600); writeErr != nil {
			return nil, fmt.Errorf("failed to write host key %s: %w", path, writeErr)
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat host key %s: %w", path, err)
	}
	return LoadSigner(path)
}

// PublicKeys returns the public halves of the signers, in the same order.
func PublicKeys(signers []ssh.Signer) []ssh.PublicKey {
	keys := make([]ssh.PublicKey, 0, len(signers))
	for _, signer := range signers {
		keys = append(keys, signer.PublicKey())
	}
	return keys
}
