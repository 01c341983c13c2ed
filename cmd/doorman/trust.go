// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/fenholt/doorman/internal/client"
	"github.com/fenholt/doorman/internal/db"
	"github.com/fenholt/doorman/internal/i18n"
	"github.com/fenholt/doorman/internal/sshkey"
)

// newTrustHostCmd builds the 'trust-host' command: fetch a host's public
// key, show its fingerprint, and pin it after confirmation.
func newTrustHostCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "trust-host <host[:port]>",
		Short: "Pin a host's public key for later connections",
		Long: `Connects to a host just long enough to capture its public key,
displays the SHA256 fingerprint, and prompts before pinning it. Pinned
keys are what 'doorman connect' verifies servers against.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]
			if strings.Contains(target, "@") {
				_, target = splitTarget(target)
			}

			key, err := client.GetRemoteHostKey(target)
			if err != nil {
				return fmt.Errorf("could not retrieve host key: %w", err)
			}

			// Pinned keys are looked up by bare hostname, so strip any port.
			host := target
			if h, _, err := net.SplitHostPort(target); err == nil {
				host = h
			}

			fingerprint := ssh.FingerprintSHA256(key)
			fmt.Println(i18n.T("trust.fingerprint", host, fingerprint))
			if warning := sshkey.CheckHostKeyAlgorithm(key); warning != "" {
				fmt.Println(warning)
			}

			if !yes {
				answer := promptForConfirmation(i18n.T("trust.prompt"))
				if answer != "y" && answer != "yes" {
					fmt.Println(i18n.T("trust.aborted"))
					os.Exit(1)
				}
			}

			keyStr := string(ssh.MarshalAuthorizedKey(key))
			if err := db.AddKnownHostKey(host, keyStr); err != nil {
				return fmt.Errorf("could not pin host key: %w", err)
			}

			fmt.Println(i18n.T("trust.saved", host))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "pin without confirmation")
	return cmd
}
