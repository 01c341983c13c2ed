// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

// main.go sets up the command-line interface for doorman using the Cobra
// library. It defines the root command, subcommands (serve, connect,
// trust-host, audit, ...), flags, and the main entry point.

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fenholt/doorman/buildvars"
	"github.com/fenholt/doorman/internal/config"
	"github.com/fenholt/doorman/internal/db"
	"github.com/fenholt/doorman/internal/i18n"
	"github.com/fenholt/doorman/internal/logging"
)

var cfgFile string
var debugFlag bool

// appConfig is the loaded configuration, populated by PersistentPreRunE
// before any subcommand runs.
var appConfig config.Config

// main is the entry point of the application.
func main() {
	if err := rootCmd.Execute(); err != nil {
		// The error is already printed by Cobra on failure.
		os.Exit(1)
	}
}

var rootCmd = NewRootCmd()

// configDefaults are the built-in values used when neither the config file,
// the environment, nor a flag says otherwise.
func configDefaults() map[string]any {
	return map[string]any{
		"language":                 "en",
		"database.type":            "sqlite",
		"database.dsn":             "./doorman.db",
		"listen.ssh":               ":2222",
		"host_keys":                []string{"./doorman_host_ed25519"},
		"limits.max_auth_tries":    6,
		"limits.handshake_seconds": 30,
	}
}

// NewRootCmd creates and configures a new root cobra command. Fresh
// instances are used by tests to get isolated flag state.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doorman",
		Short: "Doorman is a small SSH front door with a configurable welcome banner.",
		Long: `Doorman terminates SSH connections, greets every client with the
configured welcome banner, authenticates against local credentials or
authorized keys, and records each attempt on an audit trail.

The banner option accepts literal text, the "#auto-welcome-banner"
sentinel (random art of the server's host keys), a file path, or a
file: URL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupServices(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConnectCmd())
	cmd.AddCommand(newTrustHostCmd())
	cmd.AddCommand(newBannerCmd())
	cmd.AddCommand(newKeygenCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newMaintenanceCmd())

	cmd.Version = buildvars.VersionOrDefault("dev")

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is the user or system doorman.yaml)")
	cmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
	// Flag names double as config keys; LoadConfig binds them into viper.
	cmd.PersistentFlags().String("database.type", "sqlite", "database type (sqlite, postgres, mysql)")
	cmd.PersistentFlags().String("database.dsn", "./doorman.db", "database connection string (DSN)")
	cmd.PersistentFlags().String("language", "en", `CLI language ("en", "de")`)

	return cmd
}

// setupServices loads the configuration and initializes i18n and the
// database for every command.
func setupServices(cmd *cobra.Command) error {
	logging.SetDebug(debugFlag)

	configPath, err := explicitConfigPath(cmd)
	if err != nil {
		return err
	}

	appConfig, err = config.LoadConfig[config.Config](cmd, configDefaults(), configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	// A config file with empty values must not disable the essentials.
	if appConfig.Database.Type == "" {
		appConfig.Database.Type = "sqlite"
	}
	if appConfig.Database.Dsn == "" {
		appConfig.Database.Dsn = "./doorman.db"
	}
	if appConfig.Language == "" {
		appConfig.Language = "en"
	}

	i18n.Init(appConfig.Language)

	// Tests may have installed their own store already.
	if !db.IsInitialized() {
		if err := db.InitDB(appConfig.Database.Type, appConfig.Database.Dsn); err != nil {
			return fmt.Errorf("%s", i18n.T("config.error_init_db", err))
		}
	}
	return nil
}

// explicitConfigPath returns the --config value when the user set one, after
// checking the file actually exists.
func explicitConfigPath(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// splitTarget splits "user@host" into its parts. A missing user defaults to
// the current OS user.
func splitTarget(target string) (user, host string) {
	if i := strings.Index(target, "@"); i >= 0 {
		return target[:i], target[i+1:]
	}
	if u := os.Getenv("USER"); u != "" {
		return u, target
	}
	return "root", target
}

// promptForConfirmation displays a prompt and reads a line from stdin.
func promptForConfirmation(prompt string) string {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	return strings.TrimSpace(strings.ToLower(answer))
}
