// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package rephrase validates rephrase requests and relays them to the
// configured tone rewriting provider.
package rephrase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/olegiv/polite/internal/metrics"
	"github.com/olegiv/polite/internal/model"
)

// MessageRequired is the validation message for an empty rephrase request.
const MessageRequired = "Message is required"

// Provider turns a chat message into a {original, tone, rephrased} payload.
// The returned JSON is relayed to the caller unchanged.
type Provider interface {
	Rephrase(ctx context.Context, message string) (json.RawMessage, error)
}

// Gateway is the entry point for rephrase requests.
type Gateway struct {
	provider Provider
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewGateway creates a Gateway over the given provider. m may be nil.
func NewGateway(provider Provider, logger *slog.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{provider: provider, logger: logger, metrics: m}
}

// Rephrase validates message and forwards it to the provider exactly once.
// Blank messages are rejected without contacting the provider. Provider
// failures are returned as *model.UpstreamError.
func (g *Gateway) Rephrase(ctx context.Context, message string) (json.RawMessage, error) {
	if strings.TrimSpace(message) == "" {
		g.metrics.RecordRephrase(metrics.OutcomeInvalid)
		return nil, model.NewValidationError("message", MessageRequired)
	}

	payload, err := g.provider.Rephrase(ctx, message)
	if err != nil {
		var upstream *model.UpstreamError
		if !errors.As(err, &upstream) {
			upstream = &model.UpstreamError{Err: err}
		}
		g.metrics.RecordRephrase(metrics.OutcomeUpstream)
		g.logger.Error("rephrase provider failed",
			"category", model.EventCategoryRephrase,
			"status", upstream.StatusCode,
			"details", upstream.Details(),
		)
		return nil, upstream
	}

	g.metrics.RecordRephrase(metrics.OutcomeOK)
	return payload, nil
}
