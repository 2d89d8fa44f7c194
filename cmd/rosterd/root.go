// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rosterd Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/rosterd/rosterd/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// resolveConfigFile returns the explicit --config path, or the XDG default
// when one exists.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	return xdg.ConfigFile()
}

// NewRootCmd creates the root command for the rosterd CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rosterd",
		Short: "rosterd - a session-authenticated user directory",
		Long: `rosterd is a user directory service: visitors register, log in,
recover or change a password, and authenticated users manage user records.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewStatusCmd())

	return cmd
}
