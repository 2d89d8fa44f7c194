// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

// Package config loads service configuration from defaults, an optional YAML
// file, and command-line flags, in increasing order of precedence. Secrets
// (database URL, SMTP password) come from the environment.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Environment variables consulted by Load.
const (
	EnvDatabaseURL  = "DATABASE_URL"
	EnvSMTPPassword = "ROSTERD_SMTP_PASSWORD"
)

// SMTP holds mail transport settings.
type SMTP struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Secure   bool   `koanf:"secure"`
	Username string `koanf:"username"`
	Password string `koanf:"-"`
	From     string `koanf:"from"`
}

// Config holds the full service configuration.
type Config struct {
	ListenAddr  string `koanf:"listen_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	BaseURL     string `koanf:"base_url"`
	LogFormat   string `koanf:"log_format"`
	DatabaseURL string `koanf:"-"`
	SMTP        SMTP   `koanf:"smtp"`
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return oops.Code("CONFIG_INVALID").Errorf("listen_addr is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.Code("CONFIG_INVALID").Errorf("log_format must be 'json' or 'text', got %q", c.LogFormat)
	}
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("%s environment variable is required", EnvDatabaseURL)
	}
	return nil
}

// Load builds the configuration. path names an optional YAML file; flags may
// be nil. Flag values override file values, which override flag defaults.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		// Map dash-style flag names onto config keys: "smtp-host" becomes
		// "smtp.host", "listen-addr" becomes "listen_addr".
		provider := posflag.ProviderWithValue(flags, ".", k, func(key string, value string) (string, any) {
			key = strings.ReplaceAll(key, "-", "_")
			if rest, ok := strings.CutPrefix(key, "smtp_"); ok {
				key = "smtp." + rest
			}
			return key, value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load flags").
				Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	cfg.DatabaseURL = os.Getenv(EnvDatabaseURL)
	cfg.SMTP.Password = os.Getenv(EnvSMTPPassword)

	return &cfg, nil
}
