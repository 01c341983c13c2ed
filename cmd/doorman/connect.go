// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
	"golang.org/x/term"

	"github.com/fenholt/doorman/internal/client"
	"github.com/fenholt/doorman/internal/db"
	"github.com/fenholt/doorman/internal/i18n"
	"github.com/fenholt/doorman/internal/state"
)

// newConnectCmd builds the 'connect' command: one client authentication
// attempt with the banner displayed on the terminal.
func newConnectCmd() *cobra.Command {
	var (
		password    string
		identity    string
		useAgent    bool
		interactive bool
		timeout     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "connect <user@host>",
		Short: "Connect to an SSH server and show its welcome banner",
		Long: `Dials the target, runs one authentication attempt, and prints the
server's welcome banner and identification on the terminal. The host key
is verified against the pinned keys; use 'doorman trust-host' first for
new hosts.

Without --password, --identity or --agent, the password is prompted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, host := splitTarget(args[0])

			if password != "" {
				state.PasswordCache.Set([]byte(password))
			}
			pw, err := obtainPassword(user, identity == "" && !useAgent)
			if err != nil {
				return err
			}
			defer state.Wipe(pw)
			defer state.PasswordCache.Clear()

			var signers []ssh.Signer
			if identity != "" {
				signer, err := loadIdentity(identity)
				if err != nil {
					return err
				}
				signers = append(signers, signer)
			}

			opts := client.Options{
				User:                user,
				Interaction:         &client.TerminalInteraction{},
				Password:            string(pw),
				Signers:             signers,
				UseAgent:            useAgent,
				KeyboardInteractive: interactive,
				Trust:               db.ActiveStore(),
				Timeout:             timeout,
			}

			sess, err := client.Connect(cmd.Context(), host, opts)
			if err != nil {
				return err
			}
			defer sess.Close()

			fmt.Println(i18n.T("connect.established", sess.User(), sess.Target(), sess.ID()))
			fmt.Println(i18n.T("connect.closed"))
			return nil
		},
	}

	cmd.Flags().StringVarP(&password, "password", "p", "", "password (prompted when omitted)")
	cmd.Flags().StringVarP(&identity, "identity", "i", "", "private key file for publickey auth")
	cmd.Flags().BoolVar(&useAgent, "agent", false, "offer keys from the local SSH agent")
	cmd.Flags().BoolVar(&interactive, "interactive", false, "offer keyboard-interactive auth")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall attempt timeout")

	return cmd
}

// obtainPassword takes the mailbox password when one was handed over, and
// otherwise prompts on the terminal if prompting makes sense.
func obtainPassword(user string, wantPrompt bool) ([]byte, error) {
	if pw := state.PasswordCache.Get(); pw != nil {
		return pw, nil
	}
	if env := os.Getenv("DOORMAN_PASSWORD"); env != "" {
		return []byte(env), nil
	}
	if !wantPrompt || !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, nil
	}
	fmt.Print(i18n.T("connect.password_prompt", user))
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("could not read password: %w", err)
	}
	return pw, nil
}

// loadIdentity parses an unencrypted private key file.
func loadIdentity(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read identity file %s: %w", path, err)
	}
	signer, err := ssh.ParsePrivateKey(data)
	if err != nil {
		return nil, fmt.Errorf("could not parse identity file %s: %w", path, err)
	}
	return signer, nil
}
