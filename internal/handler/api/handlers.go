// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/olegiv/polite/internal/model"
	"github.com/olegiv/polite/internal/service"
)

// Rephrase handles POST /rephrase. The provider payload is relayed unchanged.
func (h *Handler) Rephrase(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	var message string
	if m := f.Text("message"); m != nil {
		message = *m
	}

	payload, err := h.rephraser.Rephrase(r.Context(), message)
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			WriteBadRequest(w, ve.Message)
			return
		}
		var upstream *model.UpstreamError
		if errors.As(err, &upstream) {
			WriteInternalError(w, "Rephrase failed", upstreamDetails(upstream))
			return
		}
		WriteInternalError(w, "Rephrase failed", err.Error())
		return
	}

	WriteRawJSON(w, http.StatusOK, payload)
}

// Usage handles POST /usage.
func (h *Handler) Usage(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	err = h.usage.Record(r.Context(), service.UsageInput{
		TS:        f.Int64("ts"),
		User:      f.Text("user"),
		Tone:      f.Text("tone"),
		Original:  f.Text("original"),
		Rephrased: f.Text("rephrased"),
	})
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			WriteBadRequest(w, ve.Message)
			return
		}
		WriteInternalError(w, "Failed to record usage", nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DailyStats handles GET /stats/daily.
func (h *Handler) DailyStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.stats.DailyCounts(r.Context())
	if err != nil {
		h.logger.Error("failed to load daily stats", "category", model.EventCategoryStats, "error", err)
		WriteInternalError(w, "Failed to load stats", nil)
		return
	}
	WriteJSON(w, http.StatusOK, counts)
}

// DailyToneStats handles GET /stats/daily-tone.
func (h *Handler) DailyToneStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.stats.DailyToneCounts(r.Context())
	if err != nil {
		h.logger.Error("failed to load daily tone stats", "category", model.EventCategoryStats, "error", err)
		WriteInternalError(w, "Failed to load stats", nil)
		return
	}
	WriteJSON(w, http.StatusOK, counts)
}

// EncryptResponse is the body of a successful POST /encrypt.
type EncryptResponse struct {
	Status    string `json:"status"`
	Encrypted string `json:"encrypted"`
}

// Encrypt handles POST /encrypt.
func (h *Handler) Encrypt(w http.ResponseWriter, r *http.Request) {
	f, err := readFields(w, r)
	if err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	var message string
	if m := f.Text("message"); m != nil {
		message = *m
	}

	payload, err := h.encryptor.Encrypt(r.Context(), message)
	if err != nil {
		var ve *model.ValidationError
		if errors.As(err, &ve) {
			WriteBadRequest(w, ve.Message)
			return
		}
		WriteInternalError(w, "Encryption failed", err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, EncryptResponse{Status: "success", Encrypted: payload})
}
