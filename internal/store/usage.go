// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/polite/internal/model"
)

// UsageStore is the append-only usage event log plus its read-only
// aggregations. It holds no state besides the database handle, so one value
// can be shared by all request goroutines.
type UsageStore struct {
	queries *Queries
}

// NewUsageStore creates a UsageStore over an opened and migrated database.
func NewUsageStore(db *sql.DB) *UsageStore {
	return &UsageStore{queries: New(db)}
}

// ValidateUsageEvent checks the two fields the usage log requires.
func ValidateUsageEvent(e model.UsageEvent) error {
	if e.Timestamp == 0 {
		return model.NewValidationError("ts", "ts & user required")
	}
	if strings.TrimSpace(e.User) == "" {
		return model.NewValidationError("user", "ts & user required")
	}
	return nil
}

// Append validates and persists one usage event. Nothing is written when
// validation fails. The generated id is not returned.
func (s *UsageStore) Append(ctx context.Context, e model.UsageEvent) error {
	if err := ValidateUsageEvent(e); err != nil {
		return err
	}
	if err := s.queries.InsertUsage(ctx, e); err != nil {
		return fmt.Errorf("inserting usage event: %w", err)
	}
	return nil
}

// Count returns the number of stored usage events.
func (s *UsageStore) Count(ctx context.Context) (int64, error) {
	n, err := s.queries.CountUsage(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting usage events: %w", err)
	}
	return n, nil
}

// List returns every stored usage event in insertion order.
func (s *UsageStore) List(ctx context.Context) ([]model.UsageEvent, error) {
	events, err := s.queries.ListUsage(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing usage events: %w", err)
	}
	return events, nil
}

// DailyCounts returns {day, total, unique_users} for every day with events,
// ascending by day.
func (s *UsageStore) DailyCounts(ctx context.Context) ([]model.DailyCount, error) {
	counts, err := s.queries.DailyCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregating daily counts: %w", err)
	}
	return counts, nil
}

// DailyCountsBetween returns DailyCounts for events with from <= ts < to.
func (s *UsageStore) DailyCountsBetween(ctx context.Context, from, to time.Time) ([]model.DailyCount, error) {
	counts, err := s.queries.DailyCountsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregating daily counts: %w", err)
	}
	return counts, nil
}

// DailyToneCounts returns {day, tone, total} for every (day, tone) pair,
// ascending by day. Events without a tone are counted as "neutral".
func (s *UsageStore) DailyToneCounts(ctx context.Context) ([]model.DailyToneCount, error) {
	counts, err := s.queries.DailyToneCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregating daily tone counts: %w", err)
	}
	return counts, nil
}
