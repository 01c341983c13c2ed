// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenholt/doorman/internal/banner"
	"github.com/fenholt/doorman/internal/config"
	"github.com/fenholt/doorman/internal/db"
	"github.com/fenholt/doorman/internal/i18n"
)

// newInitCmd builds the 'init' command: materialize a default config file.
func newInitCmd() *cobra.Command {
	var system bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Writes a doorman.yaml with default values to the user configuration
directory, or with --system to the system-wide location. Existing files
are never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.GetConfigPath(system)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				fmt.Println(i18n.T("init.exists", path))
				return nil
			}

			cfg := defaultConfigFile()
			if err := config.WriteConfigFile(&cfg, system); err != nil {
				return fmt.Errorf("could not write config: %w", err)
			}

			fmt.Println(i18n.T("init.written", path))
			return nil
		},
	}

	cmd.Flags().BoolVar(&system, "system", false, "write to the system-wide location")
	return cmd
}

// defaultConfigFile is the configuration written by 'doorman init'. The
// banner defaults to the auto sentinel so a fresh install greets clients
// with its host key art.
func defaultConfigFile() config.Config {
	var cfg config.Config
	cfg.Language = "en"
	cfg.Database.Type = "sqlite"
	cfg.Database.Dsn = "./doorman.db"
	cfg.Listen.SSH = ":2222"
	cfg.Banner.Source = banner.AutoSentinel
	cfg.HostKeys = []string{"./doorman_host_ed25519"}
	cfg.Limits.MaxAuthTries = 6
	cfg.Limits.HandshakeSeconds = 30
	return cfg
}

// newMaintenanceCmd builds the 'maintenance' command: run backend-specific
// database housekeeping.
func newMaintenanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintenance",
		Short: "Run database maintenance (vacuum, analyze)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.RunDBMaintenance(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
				return err
			}
			fmt.Println(i18n.T("maintenance.done"))
			return nil
		},
	}
}
