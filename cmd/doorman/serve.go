// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"

	"github.com/fenholt/doorman/internal/banner"
	"github.com/fenholt/doorman/internal/config"
	"github.com/fenholt/doorman/internal/db"
	"github.com/fenholt/doorman/internal/i18n"
	"github.com/fenholt/doorman/internal/logging"
	"github.com/fenholt/doorman/internal/metrics"
	"github.com/fenholt/doorman/internal/sshd"
	"github.com/fenholt/doorman/internal/sshkey"
)

// newServeCmd builds the 'serve' command: run the SSH front door until
// interrupted.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the SSH front door daemon",
		Long: `Starts the daemon on the configured listen address. Missing host key
files are generated on first start. The daemon stops gracefully on
SIGINT or SIGTERM, closing open connections and draining handlers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := buildServer(appConfig)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if appConfig.Listen.Metrics != "" {
				go func() {
					if err := metrics.Serve(ctx, appConfig.Listen.Metrics); err != nil {
						logging.Errorf("metrics listener: %v", err)
					}
				}()
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe(ctx) }()

			select {
			case <-ctx.Done():
				fmt.Println(i18n.T("serve.shutdown"))
				return <-errCh
			case err := <-errCh:
				return err
			}
		},
	}
}

// buildServer assembles the sshd server from the loaded configuration.
// Host keys are generated when their files do not exist, so a bare config
// can serve immediately.
func buildServer(cfg config.Config) (*sshd.Server, error) {
	src, err := banner.Parse(cfg.Banner.Source)
	if err != nil {
		return nil, err
	}

	if len(cfg.HostKeys) == 0 {
		return nil, fmt.Errorf("no host key files configured")
	}
	signers := make([]ssh.Signer, 0, len(cfg.HostKeys))
	for _, path := range cfg.HostKeys {
		signer, err := sshkey.EnsureSigner(path)
		if err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}

	srvCfg := sshd.Config{
		ListenAddr:          cfg.Listen.SSH,
		Banner:              src,
		BannerLang:          cfg.Banner.Lang,
		Users:               cfg.Auth.Users,
		AuthorizedKeysFile:  cfg.Auth.AuthorizedKeys,
		PAMService:          cfg.Auth.PAMService,
		KeyboardInteractive: cfg.Auth.KeyboardInteractive,
		MaxAuthTries:        cfg.Limits.MaxAuthTries,
		HandshakeTimeout:    time.Duration(cfg.Limits.HandshakeSeconds) * time.Second,
		SFTP:                cfg.SFTP.Enabled,
		SFTPRoot:            cfg.SFTP.Root,
		SFTPReadOnly:        cfg.SFTP.ReadOnly,
		AllowTCPForwarding:  cfg.Forwarding.Enabled,
		ForwardTargets:      cfg.Forwarding.Targets,
	}
	return sshd.New(srvCfg, signers, auditStore())
}

// auditStore returns the active store as the server's audit sink, or nil
// when the database was not initialized (audit disabled).
func auditStore() sshd.AuditStore {
	if !db.IsInitialized() {
		return nil
	}
	return db.ActiveStore()
}
