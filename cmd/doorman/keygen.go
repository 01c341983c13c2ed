// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/fenholt/doorman/internal/i18n"
	"github.com/fenholt/doorman/internal/sshkey"
)

// newKeygenCmd builds the 'keygen' command: generate a host key file.
func newKeygenCmd() *cobra.Command {
	var (
		rsaKey  bool
		bits    int
		comment string
	)

	cmd := &cobra.Command{
		Use:   "keygen [path]",
		Short: "Generate a host key",
		Long: `Generates a new host key and writes it to the given path (default:
the first configured host key file). The public half is written next to
it with a .pub suffix. Ed25519 is the default; --rsa selects RSA.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "./doorman_host_ed25519"
			if len(appConfig.HostKeys) > 0 {
				path = appConfig.HostKeys[0]
			}
			if len(args) > 0 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("refusing to overwrite existing key %s", path)
			}

			var pub, priv string
			var err error
			if rsaKey {
				pub, priv, err = sshkey.GenerateAndMarshalRSAKey(comment, bits)
			} else {
				pub, priv, err = sshkey.GenerateAndMarshalEd25519Key(comment, "")
			}
			if err != nil {
				return fmt.Errorf("could not generate key: %w", err)
			}

			if err := os.WriteFile(path, []byte(priv), 0o600); err != nil {
				return fmt.Errorf("could not write %s: %w", path, err)
			}
			if err := os.WriteFile(path+".pub", []byte(pub+"\n"), 0o644); err != nil {
				return fmt.Errorf("could not write %s.pub: %w", path, err)
			}

			signer, err := sshkey.LoadSigner(path)
			if err == nil {
				fmt.Println(ssh.FingerprintSHA256(signer.PublicKey()))
			}
			fmt.Println(i18n.T("keygen.written", path))
			return nil
		},
	}

	cmd.Flags().BoolVar(&rsaKey, "rsa", false, "generate an RSA key instead of ed25519")
	cmd.Flags().IntVar(&bits, "bits", 3072, "RSA key size")
	cmd.Flags().StringVar(&comment, "comment", "doorman host key", "key comment")
	return cmd
}
