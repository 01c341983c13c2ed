// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/fenholt/doorman/internal/db"
	"github.com/fenholt/doorman/internal/i18n"
	"github.com/fenholt/doorman/internal/model"
)

// newAuditCmd builds the 'audit' command group for the authentication
// trail.
func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and move the authentication audit trail",
	}
	cmd.AddCommand(newAuditListCmd())
	cmd.AddCommand(newAuditExportCmd())
	cmd.AddCommand(newAuditImportCmd())
	return cmd
}

func newAuditListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent authentication events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := db.GetAuthEvents(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				fmt.Println(i18n.T("audit.empty"))
				return nil
			}
			for _, ev := range events {
				line := fmt.Sprintf("%s  %-8s  %-20s  %-12s  banner=%s",
					ev.Timestamp.Format(time.RFC3339), ev.Outcome, ev.Username+"@"+ev.RemoteAddr, ev.Method, ev.Banner)
				if ev.Detail != "" {
					line += "  " + ev.Detail
				}
				fmt.Println(line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of events to show")
	return cmd
}

// newAuditExportCmd builds 'audit export': a zstd-compressed JSON dump of
// the audit trail and pinned host keys.
func newAuditExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [output-file]",
		Short: "Export the audit trail as compressed JSON",
		Long: `Writes all authentication events and pinned host keys to a
Zstandard-compressed JSON file, suitable for archival or for moving the
trail between database backends. Without an argument the file is named
doorman-audit-YYYY-MM-DD.json.zst.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputFile := fmt.Sprintf("doorman-audit-%s.json.zst", time.Now().Format("2006-01-02"))
			if len(args) > 0 {
				outputFile = args[0]
				if !strings.HasSuffix(outputFile, ".zst") {
					outputFile += ".zst"
				}
			}

			data, err := db.ExportDataForBackup()
			if err != nil {
				return fmt.Errorf("could not export data: %w", err)
			}
			if err := writeCompressedBackup(outputFile, data); err != nil {
				return err
			}

			fmt.Println(i18n.T("audit.exported", len(data.AuthEvents), len(data.KnownHosts), outputFile))
			return nil
		},
	}
}

// newAuditImportCmd builds 'audit import': restore a previously exported
// trail into the active database.
func newAuditImportCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import <file.json.zst>",
		Short: "Import a previously exported audit trail",
		Long: `Reads a Zstandard-compressed JSON export and restores it into the
active database, replacing the current trail and pinned host keys.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readCompressedBackup(args[0])
			if err != nil {
				return err
			}

			if !yes {
				answer := promptForConfirmation(i18n.T("audit.import_prompt", len(data.AuthEvents), len(data.KnownHosts)))
				if answer != "y" && answer != "yes" {
					return nil
				}
			}

			if err := db.ImportDataFromBackup(data); err != nil {
				return fmt.Errorf("could not import data: %w", err)
			}

			fmt.Println(i18n.T("audit.imported", len(data.AuthEvents), len(data.KnownHosts), args[0]))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "import without confirmation")
	return cmd
}

// writeCompressedBackup writes data as zstd-compressed JSON.
func writeCompressedBackup(filename string, data *model.BackupData) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("could not create backup file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zstdWriter, err := zstd.NewWriter(file)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	defer func() { _ = zstdWriter.Close() }()

	encoder := json.NewEncoder(zstdWriter)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return nil
}

// readCompressedBackup reads a zstd-compressed JSON export.
func readCompressedBackup(filename string) (*model.BackupData, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("could not open backup file: %w", err)
	}
	defer func() { _ = file.Close() }()

	zstdReader, err := zstd.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("could not create zstd reader: %w", err)
	}
	defer zstdReader.Close()

	var data model.BackupData
	if err := json.NewDecoder(zstdReader).Decode(&data); err != nil {
		return nil, fmt.Errorf("could not decode json from zstd reader: %w", err)
	}
	return &data, nil
}
