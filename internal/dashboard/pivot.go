// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/olegiv/polite/internal/model"
)

// Row is one day of the tone chart.
type Row struct {
	Day    string
	Counts map[string]int64
}

// Count returns the total for a tone, zero when absent.
func (r Row) Count(tone string) int64 {
	return r.Counts[tone]
}

// NormalizeTone folds a tone label to its canonical form. Empty labels are
// neutral.
func NormalizeTone(tone string) string {
	folded, _, err := transform.String(norm.NFC, strings.TrimSpace(tone))
	if err != nil {
		folded = strings.TrimSpace(tone)
	}
	folded = cases.Lower(language.Und).String(folded)
	if folded == "" {
		return model.ToneNeutral
	}
	return folded
}

// Pivot groups per-tone rows into one row per day with a zero-filled
// column for every tone in tones. Tones outside the list are ignored.
// Rows are returned in day order.
func Pivot(rows []model.DailyToneCount, tones []string) []Row {
	byDay := make(map[string]*Row)
	var days []string

	for _, r := range rows {
		row, ok := byDay[r.Day]
		if !ok {
			row = &Row{Day: r.Day, Counts: make(map[string]int64, len(tones))}
			for _, t := range tones {
				row.Counts[t] = 0
			}
			byDay[r.Day] = row
			days = append(days, r.Day)
		}

		tone := NormalizeTone(r.Tone)
		if slices.Contains(tones, tone) {
			row.Counts[tone] += r.Total
		}
	}

	slices.Sort(days)
	out := make([]Row, 0, len(days))
	for _, d := range days {
		out = append(out, *byDay[d])
	}
	return out
}

// Range selects how many trailing days are shown.
type Range string

const (
	RangeWeek    Range = "7d"
	RangeMonth   Range = "30d"
	RangeQuarter Range = "90d"
	RangeAll     Range = "all"
)

// ParseRange validates a range name. The empty string means all days.
func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case RangeWeek, RangeMonth, RangeQuarter, RangeAll:
		return r, nil
	case "":
		return RangeAll, nil
	default:
		return "", fmt.Errorf("unknown range %q (want 7d, 30d, 90d or all)", s)
	}
}

func (r Range) days() int {
	switch r {
	case RangeWeek:
		return 7
	case RangeMonth:
		return 30
	case RangeQuarter:
		return 90
	default:
		return 0
	}
}

// Filter keeps the rows that fall in the last N UTC days ending today.
func Filter(rows []Row, r Range, now time.Time) []Row {
	n := r.days()
	if n == 0 {
		return rows
	}

	since := now.UTC().Truncate(24*time.Hour).AddDate(0, 0, -(n - 1)).Format(time.DateOnly)
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if row.Day >= since {
			out = append(out, row)
		}
	}
	return out
}

// WriteCSV writes the chart rows with a Day column followed by one column
// per tone.
func WriteCSV(w io.Writer, rows []Row, tones []string) error {
	cw := csv.NewWriter(w)

	header := append([]string{"Day"}, tones...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	record := make([]string, len(tones)+1)
	for _, row := range rows {
		record[0] = row.Day
		for i, t := range tones {
			record[i+1] = strconv.FormatInt(row.Count(t), 10)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %s: %w", row.Day, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportFilename returns the default name of a CSV export made at now.
func ExportFilename(now time.Time) string {
	return "tone_analytics_" + now.UTC().Format(time.DateOnly) + ".csv"
}
