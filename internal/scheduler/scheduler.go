// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic jobs of the server.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/polite/internal/model"
)

// UsageSource provides per-day usage totals for a time range.
type UsageSource interface {
	DailyCountsBetween(ctx context.Context, from, to time.Time) ([]model.DailyCount, error)
}

// EventLogger records operational events.
type EventLogger interface {
	LogInfo(ctx context.Context, category, message string, metadata map[string]any) error
}

// Scheduler runs the nightly usage digest.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	source   UsageSource
	events   EventLogger
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a new scheduler. schedule is a standard five-field cron
// expression evaluated in UTC, matching the day boundaries of the stats.
func New(source UsageSource, events EventLogger, logger *slog.Logger, schedule string) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		schedule: schedule,
		source:   source,
		events:   events,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the digest job and starts the cron runner.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.RunDigest(context.Background()); err != nil {
			s.logger.Error("usage digest failed", "category", model.EventCategoryStats, "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "digest", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// RunDigest summarises the previous UTC day and writes it to the event log.
// A day without events yields a zero digest.
func (s *Scheduler) RunDigest(ctx context.Context) (model.DailyCount, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -1)

	counts, err := s.source.DailyCountsBetween(ctx, from, today)
	if err != nil {
		return model.DailyCount{}, err
	}

	digest := model.DailyCount{Day: from.Format(time.DateOnly)}
	for _, c := range counts {
		if c.Day == digest.Day {
			digest = c
		}
	}

	metadata := map[string]any{
		"day":          digest.Day,
		"total":        digest.Total,
		"unique_users": digest.UniqueUsers,
	}
	if err := s.events.LogInfo(ctx, model.EventCategoryStats, "Daily usage digest for "+digest.Day, metadata); err != nil {
		s.logger.Warn("failed to log usage digest", "error", err)
	}

	s.logger.Info("usage digest",
		"day", digest.Day,
		"total", digest.Total,
		"unique_users", digest.UniqueUsers,
	)
	return digest, nil
}
