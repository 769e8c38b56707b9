// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/olegiv/polite/internal/metrics"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimiter_BurstThenReject(t *testing.T) {
	handler := NewRateLimiter(0.001, 2).Middleware()(okHandler)

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/rephrase", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.JSONEq(t, `{"error":"Too many requests"}`, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestRateLimiter_RejectionsStayBelowWarn(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	handler := NewRateLimiter(0.001, 1).Middleware()(okHandler)
	rejected := 0
	for range 50 {
		req := httptest.NewRequest(http.MethodPost, "/rephrase", nil)
		req.RemoteAddr = "10.0.0.9:1"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			rejected++
		}
	}

	assert.Equal(t, 49, rejected)
	assert.Empty(t, buf.String(), "rejections must not reach the event log level")
}

func TestRateLimiter_PerClientIP(t *testing.T) {
	handler := NewRateLimiter(0.001, 1).Middleware()(okHandler)

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.1:2"} {
		req := httptest.NewRequest(http.MethodPost, "/rephrase", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		want := http.StatusOK
		if addr == "10.0.0.1:2" {
			want = http.StatusTooManyRequests // same host, different port
		}
		assert.Equal(t, want, rec.Code, addr)
	}
}

func TestLimiterCache_Bounded(t *testing.T) {
	lc := newLimiterCache[int](1, 1)
	for i := range maxTrackedClients + 5 {
		lc.get(i)
	}
	assert.LessOrEqual(t, lc.size(), maxTrackedClients)
	assert.Same(t, lc.get(7), lc.get(7))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4000"
	assert.Equal(t, "192.0.2.7", clientIP(req))

	req.RemoteAddr = "192.0.2.8" // RealIP rewrites without a port
	assert.Equal(t, "192.0.2.8", clientIP(req))
}

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		isDev    bool
		wantHSTS bool
	}{
		{"production enables HSTS", false, true},
		{"development disables HSTS", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := SecurityHeaders(DefaultSecurityHeadersConfig(tt.isDev))(okHandler)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats/daily", nil))

			h := rec.Header()
			assert.Equal(t, tt.wantHSTS, h.Get("Strict-Transport-Security") != "")
			assert.True(t, strings.HasPrefix(h.Get("Content-Security-Policy"), "default-src 'none'"))
			assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
			assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
			assert.Equal(t, "no-referrer", h.Get("Referrer-Policy"))
		})
	}
}

func TestSecurityHeaders_ExcludePaths(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(false)
	cfg.ExcludePaths = []string{"/metrics"}
	handler := SecurityHeaders(cfg)(okHandler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Empty(t, rec.Header().Get("Content-Security-Policy"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestInstrument_UsesRoutePattern(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(Instrument(m))
	r.Post("/usage", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/stats/{kind}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("[]"))
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/usage", nil),
		httptest.NewRequest(http.MethodGet, "/stats/daily", nil),
		httptest.NewRequest(http.MethodGet, "/stats/daily-tone", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.HTTPRequests.WithLabelValues("/usage", "POST", "204")))
	assert.Equal(t, 2.0, promtestutil.ToFloat64(m.HTTPRequests.WithLabelValues("/stats/{kind}", "GET", "200")))
}

func TestCORS(t *testing.T) {
	handler := CORS(DefaultCORSConfig(nil))(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/usage", nil)
	req.Header.Set("Origin", "chrome-extension://abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "chrome-extension://abc", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/rephrase", nil)
	req.Header.Set("Origin", "https://dashboard.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "ngrok-skip-browser-warning")
	assert.Equal(t, "3600", rec.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_OriginNotAllowed(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://dashboard.example"}))(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/stats/daily", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/stats/daily", nil)
	req.Header.Set("Origin", "HTTPS://DASHBOARD.EXAMPLE")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "HTTPS://DASHBOARD.EXAMPLE", rec.Header().Get("Access-Control-Allow-Origin"))
}
