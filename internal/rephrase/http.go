// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package rephrase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/olegiv/polite/internal/model"
)

// HTTPProvider relays messages to an external rephrasing service that
// accepts {"message": "..."} and answers with {original, tone, rephrased}.
type HTTPProvider struct {
	url    string
	client *http.Client
}

// NewHTTPProvider creates a provider posting to url. A zero timeout leaves
// the request bound only by the caller's context.
func NewHTTPProvider(url string, timeout time.Duration) *HTTPProvider {
	return &HTTPProvider{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Rephrase posts message upstream once and returns the response body as is.
func (p *HTTPProvider) Rephrase(ctx context.Context, message string) (json.RawMessage, error) {
	jsonBody, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &model.UpstreamError{Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &model.UpstreamError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.UpstreamError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.UpstreamError{StatusCode: resp.StatusCode, Body: respBody}
	}

	// A non-JSON success body is relayed as a JSON string.
	if !json.Valid(respBody) {
		quoted, err := json.Marshal(string(respBody))
		if err != nil {
			return nil, fmt.Errorf("quote body: %w", err)
		}
		return quoted, nil
	}

	return respBody, nil
}
