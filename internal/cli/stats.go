// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/olegiv/polite/internal/dashboard"
	"github.com/olegiv/polite/internal/model"
)

// NewStatsCmd creates the 'stats' command printing daily usage.
func NewStatsCmd(opts *globalOptions) *cobra.Command {
	var (
		rangeName string
		byTone    bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daily usage statistics",
		Example: `  politectl stats
  politectl stats --tone --range 30d`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := dashboard.ParseRange(rangeName)
			if err != nil {
				return err
			}
			client := dashboard.NewClient(opts.server, opts.timeout)
			if byTone {
				rows, err := client.FetchDailyTone(cmd.Context())
				if err != nil {
					return err
				}
				pivot := dashboard.Filter(dashboard.Pivot(rows, model.KnownTones), r, time.Now())
				return printToneTable(cmd.OutOrStdout(), pivot)
			}

			rows, err := client.FetchDaily(cmd.Context())
			if err != nil {
				return err
			}
			return printDailyTable(cmd.OutOrStdout(), filterDaily(rows, r, time.Now()))
		},
	}

	cmd.Flags().StringVarP(&rangeName, "range", "r", "all", "Days to show: 7d, 30d, 90d or all")
	cmd.Flags().BoolVarP(&byTone, "tone", "t", false, "Break the totals down by tone")

	return cmd
}

// filterDaily applies a dashboard range to plain daily counts.
func filterDaily(rows []model.DailyCount, r dashboard.Range, now time.Time) []model.DailyCount {
	days := make([]dashboard.Row, len(rows))
	for i, row := range rows {
		days[i] = dashboard.Row{Day: row.Day}
	}
	keep := make(map[string]bool)
	for _, row := range dashboard.Filter(days, r, now) {
		keep[row.Day] = true
	}

	out := make([]model.DailyCount, 0, len(rows))
	for _, row := range rows {
		if keep[row.Day] {
			out = append(out, row)
		}
	}
	return out
}

func printDailyTable(w io.Writer, rows []model.DailyCount) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No usage recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DAY\tTOTAL\tUNIQUE USERS")
	for _, row := range rows {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\n", row.Day, row.Total, row.UniqueUsers)
	}
	return tw.Flush()
}

func printToneTable(w io.Writer, rows []dashboard.Row) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, "No usage recorded.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprint(tw, "DAY")
	for _, tone := range model.KnownTones {
		_, _ = fmt.Fprintf(tw, "\t%s", tone)
	}
	_, _ = fmt.Fprintln(tw)
	for _, row := range rows {
		_, _ = fmt.Fprint(tw, row.Day)
		for _, tone := range model.KnownTones {
			_, _ = fmt.Fprintf(tw, "\t%d", row.Count(tone))
		}
		_, _ = fmt.Fprintln(tw)
	}
	return tw.Flush()
}
