// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// BypassHeader is sent on every request so tunnelling proxies such as ngrok
// pass API calls through instead of serving their browser warning page.
const BypassHeader = "ngrok-skip-browser-warning"

// RephraseResult is the answer of POST /rephrase.
type RephraseResult struct {
	Original  string `json:"original"`
	Tone      string `json:"tone"`
	Rephrased string `json:"rephrased"`
}

// UsagePayload is the body of POST /usage.
type UsagePayload struct {
	TS        int64  `json:"ts"`
	User      string `json:"user"`
	Tone      string `json:"tone"`
	Original  string `json:"original"`
	Rephrased string `json:"rephrased"`
}

// API is the server as seen by the suggestion client.
type API interface {
	Rephrase(ctx context.Context, text string) (RephraseResult, error)
	RecordUsage(ctx context.Context, p UsagePayload) error
}

// HTTPClient calls the polite server over HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient creates a client for the server at baseURL. A zero timeout
// leaves requests bound only by their context.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Rephrase asks the server for a rephrased version of text.
func (c *HTTPClient) Rephrase(ctx context.Context, text string) (RephraseResult, error) {
	var res RephraseResult
	body, err := c.post(ctx, "/rephrase", map[string]string{"message": text})
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return res, fmt.Errorf("rephrase decode: %w", err)
	}
	return res, nil
}

// RecordUsage reports an accepted suggestion.
func (c *HTTPClient) RecordUsage(ctx context.Context, p UsagePayload) error {
	_, err := c.post(ctx, "/usage", p)
	return err
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(BypassHeader, "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%s: status %d: %s", path, resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
