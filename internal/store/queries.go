// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/polite/internal/model"
)

// DBTX is the subset of *sql.DB and *sql.Tx used by Queries.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL statements of the store. It has no state besides
// the handle it was created with.
type Queries struct {
	db DBTX
}

// New creates Queries over the given handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const insertUsage = `
INSERT INTO usage (ts, user, tone, original, rephrased)
VALUES (?, ?, ?, ?, ?)
`

// InsertUsage appends one usage row. Nil optional fields are stored as NULL.
func (q *Queries) InsertUsage(ctx context.Context, e model.UsageEvent) error {
	_, err := q.db.ExecContext(ctx, insertUsage,
		e.Timestamp,
		e.User,
		nullString(e.Tone),
		nullString(e.Original),
		nullString(e.Rephrased),
	)
	return err
}

// CountUsage returns the number of stored usage events.
func (q *Queries) CountUsage(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM usage`).Scan(&n)
	return n, err
}

const listUsage = `
SELECT id, ts, user, tone, original, rephrased
FROM usage
ORDER BY id
`

// ListUsage returns every stored usage event in insertion order.
func (q *Queries) ListUsage(ctx context.Context) ([]model.UsageEvent, error) {
	rows, err := q.db.QueryContext(ctx, listUsage)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	events := []model.UsageEvent{}
	for rows.Next() {
		var (
			e                         model.UsageEvent
			user                      sql.NullString
			tone, original, rephrased sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &user, &tone, &original, &rephrased); err != nil {
			return nil, err
		}
		e.User = user.String
		e.Tone = stringPtr(tone)
		e.Original = stringPtr(original)
		e.Rephrased = stringPtr(rephrased)
		events = append(events, e)
	}
	return events, rows.Err()
}

// The day is the UTC calendar date of the epoch millisecond timestamp.
const dayExpr = `date(ts / 1000, 'unixepoch')`

// toneExpr applies the read-time tone default. Grouping uses the expression
// itself so that NULL and 'neutral' rows fall into the same group.
const toneExpr = `COALESCE(NULLIF(tone, ''), 'neutral')`

const dailyCounts = `
SELECT ` + dayExpr + ` AS day,
       COUNT(*)             AS total,
       COUNT(DISTINCT user) AS unique_users
FROM usage
GROUP BY ` + dayExpr + `
ORDER BY day
`

// DailyCounts groups all usage events by day.
func (q *Queries) DailyCounts(ctx context.Context) ([]model.DailyCount, error) {
	return q.scanDailyCounts(ctx, dailyCounts)
}

const dailyCountsBetween = `
SELECT ` + dayExpr + ` AS day,
       COUNT(*)             AS total,
       COUNT(DISTINCT user) AS unique_users
FROM usage
WHERE ts >= ? AND ts < ?
GROUP BY ` + dayExpr + `
ORDER BY day
`

// DailyCountsBetween is DailyCounts restricted to events in [from, to).
func (q *Queries) DailyCountsBetween(ctx context.Context, from, to time.Time) ([]model.DailyCount, error) {
	return q.scanDailyCounts(ctx, dailyCountsBetween, from.UnixMilli(), to.UnixMilli())
}

func (q *Queries) scanDailyCounts(ctx context.Context, query string, args ...any) ([]model.DailyCount, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := []model.DailyCount{}
	for rows.Next() {
		var c model.DailyCount
		if err := rows.Scan(&c.Day, &c.Total, &c.UniqueUsers); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

const dailyToneCounts = `
SELECT ` + dayExpr + `  AS day,
       ` + toneExpr + ` AS tone_label,
       COUNT(*)         AS total
FROM usage
GROUP BY ` + dayExpr + `, ` + toneExpr + `
ORDER BY day, tone_label
`

// DailyToneCounts groups all usage events by day and tone.
func (q *Queries) DailyToneCounts(ctx context.Context) ([]model.DailyToneCount, error) {
	rows, err := q.db.QueryContext(ctx, dailyToneCounts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := []model.DailyToneCount{}
	for rows.Next() {
		var c model.DailyToneCount
		if err := rows.Scan(&c.Day, &c.Tone, &c.Total); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// CreateEncryptedMessage stores an encrypted message payload.
func (q *Queries) CreateEncryptedMessage(ctx context.Context, payload string, createdAt time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO encrypted_messages (payload, created_at) VALUES (?, ?)`,
		payload, createdAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CountEncryptedMessages returns the number of stored encrypted messages.
func (q *Queries) CountEncryptedMessages(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM encrypted_messages`).Scan(&n)
	return n, err
}

// CreateEventParams are the columns of a new event_log row.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent inserts an event_log row.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (int64, error) {
	metadata := arg.Metadata
	if metadata == "" {
		metadata = "{}"
	}
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO event_log (level, category, message, metadata, created_at) VALUES (?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, metadata, arg.CreatedAt.UTC())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListEvents returns the most recent event_log rows, newest first.
func (q *Queries) ListEvents(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, level, category, message, metadata, created_at
		FROM event_log
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
