// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/fenholt/doorman/internal/banner"
	"github.com/fenholt/doorman/internal/i18n"
	"github.com/fenholt/doorman/internal/sshkey"
)

var previewFrame = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Padding(0, 1)

// newBannerCmd builds the 'banner' command group.
func newBannerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "banner",
		Short: "Inspect the configured welcome banner",
	}
	cmd.AddCommand(newBannerPreviewCmd())
	return cmd
}

// newBannerPreviewCmd builds 'banner preview': resolve the banner exactly
// as the daemon would and print the result.
func newBannerPreviewCmd() *cobra.Command {
	var value string
	var keyFiles []string

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Resolve the banner and print what clients would see",
		Long: `Resolves the configured banner source (or a --value override) the same
way the daemon does on each connection and prints the outcome. For the
auto sentinel the art is rendered from the configured host keys, or from
the files given with --keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := appConfig.Banner.Source
			if cmd.Flags().Changed("value") {
				raw = value
			}
			src, err := banner.Parse(raw)
			if err != nil {
				return err
			}

			paths := keyFiles
			if len(paths) == 0 {
				paths = appConfig.HostKeys
			}
			hostKeys := previewHostKeys(paths)

			resolver := banner.Resolver{Source: src, HostKeys: hostKeys, Lang: appConfig.Banner.Lang}
			b, err := resolver.Resolve()
			if err != nil {
				return err
			}
			if b.IsZero() {
				fmt.Println(i18n.T("banner.none"))
				return nil
			}

			fmt.Println(previewFrame.Render(strings.TrimRight(b.Text, "\n")))
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "banner source to preview instead of the configured one")
	cmd.Flags().StringSliceVar(&keyFiles, "keys", nil, "host key files used for the auto banner")
	return cmd
}

// previewHostKeys loads the public halves of the given key files. Missing
// files are skipped: the preview should work before 'serve' has generated
// anything.
func previewHostKeys(paths []string) []ssh.PublicKey {
	var keys []ssh.PublicKey
	for _, path := range paths {
		signer, err := sshkey.LoadSigner(path)
		if err != nil {
			continue
		}
		keys = append(keys, signer.PublicKey())
	}
	return keys
}
