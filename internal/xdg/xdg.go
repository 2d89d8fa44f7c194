// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

// Package xdg provides XDG Base Directory paths for rosterd.
package xdg

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "rosterd"

// ConfigDir returns the XDG config directory for rosterd.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

// ConfigFile returns the default configuration file path, or an empty string
// if no file exists there. Callers use it when no explicit path is given.
func ConfigFile() string {
	path := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// EnsureDir creates a directory and all parent directories if they don't exist.
// Directories are created with 0700 permissions.
func EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}
