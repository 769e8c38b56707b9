// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryRephrase = "rephrase"
	EventCategoryUsage    = "usage"
	EventCategoryStats    = "stats"
	EventCategoryEncrypt  = "encrypt"
	EventCategoryStore    = "store"
	EventCategorySystem   = "system"
)

// Event represents an operational event log entry.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Metadata  string // JSON string
	CreatedAt time.Time
}
