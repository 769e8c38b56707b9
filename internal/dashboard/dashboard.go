// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dashboard reads the usage statistics of a polite server and
// shapes them for display and export.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/olegiv/polite/internal/model"
)

// BypassHeader makes tunnelling proxies pass API calls through.
const BypassHeader = "ngrok-skip-browser-warning"

// Client fetches statistics from the server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// FetchDailyTone returns the per-day, per-tone totals.
func (c *Client) FetchDailyTone(ctx context.Context) ([]model.DailyToneCount, error) {
	var rows []model.DailyToneCount
	if err := c.get(ctx, "/stats/daily-tone", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchDaily returns the per-day totals and unique users.
func (c *Client) FetchDaily(ctx context.Context) ([]model.DailyCount, error) {
	var rows []model.DailyCount
	if err := c.get(ctx, "/stats/daily", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set(BypassHeader, "true")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("fetching %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
