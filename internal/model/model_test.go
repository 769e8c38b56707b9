// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestToneOrDefault(t *testing.T) {
	tests := []struct {
		name string
		tone *string
		want string
	}{
		{"nil", nil, "neutral"},
		{"empty", strPtr(""), "neutral"},
		{"blank kept", strPtr("  "), "  "},
		{"angry", strPtr("angry"), "angry"},
		{"unknown kept", strPtr("sarcastic"), "sarcastic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToneOrDefault(tt.tone); got != tt.want {
				t.Errorf("ToneOrDefault() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUsageEvent_ToneOrNeutral(t *testing.T) {
	e := UsageEvent{Timestamp: 1, User: "u"}
	if got := e.ToneOrNeutral(); got != ToneNeutral {
		t.Errorf("ToneOrNeutral() = %q, want %q", got, ToneNeutral)
	}
}

func TestValidationError(t *testing.T) {
	err := fmt.Errorf("recording: %w", NewValidationError("user", "ts & user required"))

	if !IsValidation(err) {
		t.Fatal("expected wrapped ValidationError to be detected")
	}
	if IsValidation(errors.New("boom")) {
		t.Error("plain error must not be a ValidationError")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("errors.As failed")
	}
	if ve.Field != "user" {
		t.Errorf("Field = %q, want %q", ve.Field, "user")
	}
}

func TestUpstreamError_Details(t *testing.T) {
	withBody := &UpstreamError{StatusCode: 502, Body: []byte(`{"detail":"model down"}`)}
	if got := withBody.Details(); got != `{"detail":"model down"}` {
		t.Errorf("Details() = %q", got)
	}

	cause := errors.New("connection refused")
	unreachable := &UpstreamError{Err: cause}
	if got := unreachable.Details(); got != "connection refused" {
		t.Errorf("Details() = %q", got)
	}
	if !errors.Is(unreachable, cause) {
		t.Error("UpstreamError must unwrap to its cause")
	}
}
