// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cli implements the politectl commands.
package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/polite/internal/version"
)

const defaultServerURL = "http://localhost:5000"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	server  string
	timeout time.Duration
}

// NewRootCmd creates the politectl root command with all subcommands.
func NewRootCmd(info version.Info) *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "politectl",
		Short: "Client for the polite rephrasing server",
		Long: `politectl talks to a polite server: it prints usage statistics,
exports the tone chart as CSV and runs an interactive suggestion session.`,
		Version:       info.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("POLITE_SERVER_URL")
	if server == "" {
		server = defaultServerURL
	}
	cmd.PersistentFlags().StringVarP(&opts.server, "server", "s", server, "Server base URL (env POLITE_SERVER_URL)")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 15*time.Second, "HTTP request timeout")

	cmd.AddCommand(NewStatsCmd(opts))
	cmd.AddCommand(NewExportCmd(opts))
	cmd.AddCommand(NewSuggestCmd(opts))

	return cmd
}
