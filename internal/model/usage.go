// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the domain types shared by the store, the HTTP layer
// and the clients.
package model

// Tone labels produced by the rephrasing provider.
const (
	ToneAngry    = "angry"
	ToneInformal = "informal"
	ToneFormal   = "formal"
	ToneNeutral  = "neutral"
)

// KnownTones lists the tone categories in display order.
var KnownTones = []string{ToneAngry, ToneInformal, ToneFormal, ToneNeutral}

// UsageEvent is one accepted suggestion as stored in the usage table.
// Tone, Original and Rephrased are nil when the client did not send them.
type UsageEvent struct {
	ID        int64
	Timestamp int64 // epoch milliseconds, client supplied
	User      string
	Tone      *string
	Original  *string
	Rephrased *string
}

// ToneOrNeutral returns the event tone, or "neutral" when it is absent.
func (e UsageEvent) ToneOrNeutral() string {
	return ToneOrDefault(e.Tone)
}

// ToneOrDefault applies the read-time tone default. Only absent and empty
// tones become neutral, matching the aggregation queries.
func ToneOrDefault(tone *string) string {
	if tone == nil || *tone == "" {
		return ToneNeutral
	}
	return *tone
}

// DailyCount is the per-day usage summary.
type DailyCount struct {
	Day         string `json:"day"`
	Total       int64  `json:"total"`
	UniqueUsers int64  `json:"unique_users"`
}

// DailyToneCount is the per-day, per-tone usage summary.
type DailyToneCount struct {
	Day   string `json:"day"`
	Tone  string `json:"tone"`
	Total int64  `json:"total"`
}

// Suggestion is the {tone, original, rephrased} triple returned by the
// rephrasing provider.
type Suggestion struct {
	Original  string `json:"original"`
	Tone      string `json:"tone,omitempty"`
	Rephrased string `json:"rephrased"`
}
