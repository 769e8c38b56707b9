// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON HTTP handlers of the polite server.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/polite/internal/model"
	"github.com/olegiv/polite/internal/service"
)

// Rephraser validates and relays rephrase requests.
type Rephraser interface {
	Rephrase(ctx context.Context, message string) (json.RawMessage, error)
}

// UsageRecorder stores accepted-suggestion reports.
type UsageRecorder interface {
	Record(ctx context.Context, in service.UsageInput) error
}

// StatsReader reads the usage aggregations.
type StatsReader interface {
	DailyCounts(ctx context.Context) ([]model.DailyCount, error)
	DailyToneCounts(ctx context.Context) ([]model.DailyToneCount, error)
}

// Encryptor encrypts and stores chat messages.
type Encryptor interface {
	Encrypt(ctx context.Context, message string) (string, error)
}

// Deps are the collaborators of Handler.
type Deps struct {
	Rephraser Rephraser
	Usage     UsageRecorder
	Stats     StatsReader
	Encryptor Encryptor
	Logger    *slog.Logger
	Version   string
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	rephraser Rephraser
	usage     UsageRecorder
	stats     StatsReader
	encryptor Encryptor
	logger    *slog.Logger
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		rephraser: d.Rephraser,
		usage:     d.Usage,
		stats:     d.Stats,
		encryptor: d.Encryptor,
		logger:    d.Logger,
		version:   d.Version,
	}
}

// Mount registers the API routes on r. rephraseLimit, when not nil, wraps
// POST /rephrase only.
func (h *Handler) Mount(r chi.Router, rephraseLimit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		if rephraseLimit != nil {
			r.Use(rephraseLimit)
		}
		r.Post("/rephrase", h.Rephrase)
	})
	r.Post("/usage", h.Usage)
	r.Get("/stats/daily", h.DailyStats)
	r.Get("/stats/daily-tone", h.DailyToneStats)
	r.Post("/encrypt", h.Encrypt)
	r.Get("/health", h.Health)
}

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteRawJSON writes an already encoded JSON document.
func WriteRawJSON(w http.ResponseWriter, statusCode int, body json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(body)
}

// WriteError writes an error JSON response. details is omitted when nil.
func WriteError(w http.ResponseWriter, statusCode int, message string, details any) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Details: details})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string, details any) {
	WriteError(w, http.StatusInternalServerError, message, details)
}

// upstreamDetails returns the provider diagnostic as JSON when it is JSON,
// as a string otherwise.
func upstreamDetails(e *model.UpstreamError) any {
	if len(e.Body) > 0 && json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return e.Details()
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health reports that the server is up.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}
