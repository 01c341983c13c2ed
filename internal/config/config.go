// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads and writes the doorman configuration file. Values are
// layered: defaults, then the config file, then environment variables with
// the DOORMAN_ prefix, then command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the on-disk configuration for the doorman daemon and CLI.
type Config struct {
	Language string `mapstructure:"language" yaml:"language"`

	Database struct {
		Type string `mapstructure:"type" yaml:"type"`
		Dsn  string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"database" yaml:"database"`

	Listen struct {
		// SSH is the address the front door listens on.
		SSH string `mapstructure:"ssh" yaml:"ssh"`
		// Metrics is the Prometheus endpoint address; empty disables it.
		Metrics string `mapstructure:"metrics" yaml:"metrics,omitempty"`
	} `mapstructure:"listen" yaml:"listen"`

	Banner struct {
		// Source holds a banner locator: literal text, "#auto-welcome-banner",
		// or a file path / file: / http(s): reference.
		Source string `mapstructure:"source" yaml:"source"`
		// Lang selects a localized variant of file-based banners.
		Lang string `mapstructure:"lang" yaml:"lang,omitempty"`
	} `mapstructure:"banner" yaml:"banner"`

	// HostKeys lists private host key files. Missing files are generated on
	// first start.
	HostKeys []string `mapstructure:"host_keys" yaml:"host_keys"`

	Auth struct {
		// Users maps usernames to bcrypt password hashes.
		Users map[string]string `mapstructure:"users" yaml:"users,omitempty"`
		// AuthorizedKeys is an authorized_keys file enabling publickey auth.
		AuthorizedKeys string `mapstructure:"authorized_keys" yaml:"authorized_keys,omitempty"`
		// PAMService names the PAM service used for password fallback.
		PAMService string `mapstructure:"pam_service" yaml:"pam_service,omitempty"`
		// KeyboardInteractive offers a single password round over
		// keyboard-interactive.
		KeyboardInteractive bool `mapstructure:"keyboard_interactive" yaml:"keyboard_interactive"`
	} `mapstructure:"auth" yaml:"auth"`

	Limits struct {
		MaxAuthTries     int `mapstructure:"max_auth_tries" yaml:"max_auth_tries"`
		HandshakeSeconds int `mapstructure:"handshake_seconds" yaml:"handshake_seconds"`
	} `mapstructure:"limits" yaml:"limits"`

	SFTP struct {
		Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
		Root     string `mapstructure:"root" yaml:"root,omitempty"`
		ReadOnly bool   `mapstructure:"read_only" yaml:"read_only"`
	} `mapstructure:"sftp" yaml:"sftp"`

	Forwarding struct {
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
		// Targets whitelists host:port forward destinations; empty allows all.
		Targets []string `mapstructure:"targets" yaml:"targets,omitempty"`
	} `mapstructure:"forwarding" yaml:"forwarding"`
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Doorman")
		default: // Linux, macOS, etc.
			configDir = "/etc/doorman"
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, "doorman")
	}

	return filepath.Join(configDir, "doorman.yaml"), nil
}

// LoadConfig builds a T from defaults, the config file, DOORMAN_* environment
// variables and the command's flags, in that order of precedence. A missing
// config file is not an error; a malformed one is.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("doorman")
	v.SetConfigType("yaml")

	// An explicit --config path wins over the search locations.
	if configFile != nil {
		v.SetConfigFile(*configFile)
	}

	if userConfigPath, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(userConfigPath))
	}
	if systemConfigPath, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(systemConfigPath))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("doorman")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return c, err
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

// WriteConfigFile serializes c to the user or system config location,
// creating the directory when needed. The file is written 0600 since it may
// contain password hashes.
func WriteConfigFile[T any](c *T, system bool) error {
	path, err := GetConfigPath(system)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	return os.WriteFile(path, data, 0600)
}
