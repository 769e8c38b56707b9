// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics holds the Prometheus collectors of the server.
package metrics

import (
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/olegiv/polite/internal/model"
)

// ToneOther is the usage label for tones outside model.KnownTones.
const ToneOther = "other"

// Rephrase outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeInvalid  = "invalid"
	OutcomeUpstream = "upstream_error"
	OutcomeError    = "error"
)

// Metrics holds Prometheus metrics for the HTTP surface and the usage pipeline.
// A nil *Metrics is valid and records nothing.
//
// Metrics:
//   - polite_http_requests_total{route,method,status}
//   - polite_http_request_duration_seconds{route}
//   - polite_rephrase_requests_total{outcome}
//   - polite_usage_events_total{tone}
//   - polite_encrypt_requests_total{outcome}
type Metrics struct {
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	RephraseRequests *prometheus.CounterVec
	UsageEvents      *prometheus.CounterVec
	EncryptRequests  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polite_http_requests_total",
				Help: "Total number of HTTP requests handled",
			},
			[]string{"route", "method", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polite_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		RephraseRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polite_rephrase_requests_total",
				Help: "Total number of rephrase requests by outcome",
			},
			[]string{"outcome"},
		),
		UsageEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polite_usage_events_total",
				Help: "Total number of accepted suggestions recorded",
			},
			[]string{"tone"},
		),
		EncryptRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polite_encrypt_requests_total",
				Help: "Total number of encrypt requests by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveHTTP records one finished HTTP request.
func (m *Metrics) ObserveHTTP(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordRephrase counts a rephrase request outcome.
func (m *Metrics) RecordRephrase(outcome string) {
	if m == nil {
		return
	}
	m.RephraseRequests.WithLabelValues(outcome).Inc()
}

// RecordUsage counts one stored usage event. Tones are client supplied, so
// anything outside the known set shares the "other" label.
func (m *Metrics) RecordUsage(tone string) {
	if m == nil {
		return
	}
	m.UsageEvents.WithLabelValues(toneLabel(tone)).Inc()
}

func toneLabel(tone string) string {
	tone = strings.ToLower(tone)
	if slices.Contains(model.KnownTones, tone) {
		return tone
	}
	return ToneOther
}

// RecordEncrypt counts an encrypt request outcome.
func (m *Metrics) RecordEncrypt(outcome string) {
	if m == nil {
		return
	}
	m.EncryptRequests.WithLabelValues(outcome).Inc()
}
