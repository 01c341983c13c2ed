package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	cfg "github.com/fenholt/doorman/internal/config"
)

func testDefaults() map[string]any {
	return map[string]any{
		"language":                 "en",
		"database.type":            "sqlite",
		"database.dsn":             "./doorman.db",
		"listen.ssh":               ":2022",
		"banner.source":            "#auto-welcome-banner",
		"limits.max_auth_tries":    6,
		"limits.handshake_seconds": 30,
	}
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, testDefaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Database.Type != "sqlite" || got.Database.Dsn != "./doorman.db" {
		t.Fatalf("expected database defaults, got %+v", got.Database)
	}
	if got.Listen.SSH != ":2022" {
		t.Fatalf("expected listen default, got %q", got.Listen.SSH)
	}
	if got.Banner.Source != "#auto-welcome-banner" {
		t.Fatalf("expected auto banner default, got %q", got.Banner.Source)
	}
	if got.Limits.MaxAuthTries != 6 || got.Limits.HandshakeSeconds != 30 {
		t.Fatalf("expected limit defaults, got %+v", got.Limits)
	}
}

func TestLoadConfig_ReadsExplicitFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	yaml := strings.Join([]string{
		"database:",
		"  type: postgres",
		"  dsn: postgresql://user@/doorman",
		"language: de",
		"banner:",
		"  source: /etc/doorman/welcome.txt",
		"  lang: de",
		"auth:",
		"  users:",
		"    alice: $2a$10$hash",
		"  keyboard_interactive: true",
		"forwarding:",
		"  enabled: true",
		"  targets:",
		"    - 127.0.0.1:8080",
		"",
	}, "\n")
	file := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(file, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, testDefaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Database.Type != "postgres" {
		t.Fatalf("expected postgres, got %q", got.Database.Type)
	}
	if got.Language != "de" || got.Banner.Lang != "de" {
		t.Fatalf("expected de localization, got %q / %q", got.Language, got.Banner.Lang)
	}
	if got.Banner.Source != "/etc/doorman/welcome.txt" {
		t.Fatalf("expected banner path, got %q", got.Banner.Source)
	}
	if got.Auth.Users["alice"] != "$2a$10$hash" || !got.Auth.KeyboardInteractive {
		t.Fatalf("expected auth section, got %+v", got.Auth)
	}
	if !got.Forwarding.Enabled || len(got.Forwarding.Targets) != 1 || got.Forwarding.Targets[0] != "127.0.0.1:8080" {
		t.Fatalf("expected forwarding section, got %+v", got.Forwarding)
	}
	// Values absent from the file keep their defaults.
	if got.Listen.SSH != ":2022" {
		t.Fatalf("expected listen default to survive, got %q", got.Listen.SSH)
	}
}

func TestLoadConfig_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DOORMAN_DATABASE_TYPE", "mysql")
	t.Setenv("DOORMAN_LISTEN_SSH", ":2222")

	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, testDefaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got.Database.Type != "mysql" {
		t.Fatalf("expected env override for database type, got %q", got.Database.Type)
	}
	if got.Listen.SSH != ":2222" {
		t.Fatalf("expected env override for listen address, got %q", got.Listen.SSH)
	}
}

func TestLoadConfig_MalformedFileIsFatal(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	file := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(file, []byte("listen: [unclosed"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, testDefaults(), &file); err == nil {
		t.Fatalf("expected error for malformed config file")
	}
}

func TestWriteConfigFile_CreatesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var c cfg.Config
	c.Language = "en"
	c.Database.Type = "sqlite"
	c.Database.Dsn = "./doorman.db"
	c.Listen.SSH = ":2022"
	c.Banner.Source = "#auto-welcome-banner"
	c.HostKeys = []string{"./ssh_host_ed25519_key"}

	if err := cfg.WriteConfigFile(&c, false); err != nil {
		t.Fatalf("WriteConfigFile failed: %v", err)
	}

	path, err := cfg.GetConfigPath(false)
	if err != nil {
		t.Fatalf("GetConfigPath failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected config file at %s: %v", path, err)
	}
	if !strings.Contains(string(data), "type: sqlite") {
		t.Fatalf("written config missing database type:\n%s", data)
	}

	// The written file must round-trip through LoadConfig.
	got, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, testDefaults(), &path)
	if err != nil {
		t.Fatalf("LoadConfig on written file failed: %v", err)
	}
	if got.Banner.Source != "#auto-welcome-banner" || len(got.HostKeys) != 1 {
		t.Fatalf("round-trip lost fields: %+v", got)
	}
}
