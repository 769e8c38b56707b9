// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"log/slog"

	"github.com/olegiv/polite/internal/metrics"
	"github.com/olegiv/polite/internal/model"
	"github.com/olegiv/polite/internal/store"
)

// UsageInput is an accepted-suggestion report as received from a client.
// Every field may be absent.
type UsageInput struct {
	TS        *int64
	User      *string
	Tone      *string
	Original  *string
	Rephrased *string
}

// UsageRecorder validates usage reports and appends them to the store.
type UsageRecorder struct {
	store   *store.UsageStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewUsageRecorder creates a UsageRecorder. m may be nil.
func NewUsageRecorder(s *store.UsageStore, logger *slog.Logger, m *metrics.Metrics) *UsageRecorder {
	return &UsageRecorder{store: s, logger: logger, metrics: m}
}

// Record appends one usage event. A missing or zero ts, or a missing or
// empty user, is rejected with *model.ValidationError and nothing is written.
// Identical reports are stored as separate rows.
func (r *UsageRecorder) Record(ctx context.Context, in UsageInput) error {
	e := model.UsageEvent{
		Tone:      in.Tone,
		Original:  in.Original,
		Rephrased: in.Rephrased,
	}
	if in.TS != nil {
		e.Timestamp = *in.TS
	}
	if in.User != nil {
		e.User = *in.User
	}

	if err := r.store.Append(ctx, e); err != nil {
		if !model.IsValidation(err) {
			r.logger.Error("failed to record usage",
				"category", model.EventCategoryUsage,
				"error", err,
			)
		}
		return err
	}

	r.metrics.RecordUsage(e.ToneOrNeutral())
	return nil
}
