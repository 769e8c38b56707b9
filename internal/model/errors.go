// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
)

// ValidationError reports a missing or malformed required input field.
// It is always raised before any side effect takes place.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UpstreamError reports a failure of the external rephrasing provider.
// StatusCode and Body are set when the provider answered with a failure status;
// Err is set when it could not be reached at all.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return "upstream: " + e.Err.Error()
	}
	return fmt.Sprintf("upstream: status %d: %s", e.StatusCode, string(e.Body))
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Details returns the provider diagnostic: the raw body when one was
// returned, the transport error message otherwise.
func (e *UpstreamError) Details() string {
	if len(e.Body) > 0 {
		return string(e.Body)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}
