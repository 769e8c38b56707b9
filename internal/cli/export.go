// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/polite/internal/dashboard"
	"github.com/olegiv/polite/internal/model"
)

// NewExportCmd creates the 'export' command writing the tone chart as CSV.
func NewExportCmd(opts *globalOptions) *cobra.Command {
	var (
		rangeName string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export per-day tone totals as CSV",
		Long: `Fetch the per-day tone totals and write them as CSV with one column per
tone. The default file name is tone_analytics_YYYY-MM-DD.csv; use -o - for stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := dashboard.ParseRange(rangeName)
			if err != nil {
				return err
			}

			now := time.Now()
			rows, err := dashboard.NewClient(opts.server, opts.timeout).FetchDailyTone(cmd.Context())
			if err != nil {
				return err
			}
			pivot := dashboard.Filter(dashboard.Pivot(rows, model.KnownTones), r, now)

			if output == "-" {
				return dashboard.WriteCSV(cmd.OutOrStdout(), pivot, model.KnownTones)
			}
			if output == "" {
				output = dashboard.ExportFilename(now)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := dashboard.WriteCSV(f, pivot, model.KnownTones); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("closing %s: %w", output, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d days to %s\n", len(pivot), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&rangeName, "range", "r", "all", "Days to export: 7d, 30d, 90d or all")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default tone_analytics_<date>.csv, - for stdout)")

	return cmd
}
