// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/polite/internal/cipher"
	"github.com/olegiv/polite/internal/model"
	"github.com/olegiv/polite/internal/rephrase"
	"github.com/olegiv/polite/internal/service"
	"github.com/olegiv/polite/internal/store"
	"github.com/olegiv/polite/internal/testutil"
)

type testServer struct {
	router        http.Handler
	usage         *store.UsageStore
	upstreamCalls *atomic.Int32
	countRows     func(table string) int64
}

// newTestServer wires the real components over a temp database and a fake
// upstream rephrasing service answering with upstream.
func newTestServer(t *testing.T, upstream http.HandlerFunc) *testServer {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	var calls atomic.Int32
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		upstream(w, r)
	}))
	t.Cleanup(up.Close)

	logger := slog.New(slog.DiscardHandler)
	usage := store.NewUsageStore(db)
	c, err := cipher.New("test-secret")
	require.NoError(t, err)

	h := NewHandler(Deps{
		Rephraser: rephrase.NewGateway(rephrase.NewHTTPProvider(up.URL, 5*time.Second), logger, nil),
		Usage:     service.NewUsageRecorder(usage, logger, nil),
		Stats:     usage,
		Encryptor: service.NewEncryptionService(db, c, logger, nil),
		Logger:    logger,
		Version:   "test",
	})

	r := chi.NewRouter()
	h.Mount(r, nil)

	return &testServer{
		router:        r,
		usage:         usage,
		upstreamCalls: &calls,
		countRows:     func(table string) int64 { return testutil.CountRows(t, db, table) },
	}
}

func okUpstream(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"original":"Fix it.","tone":"angry","rephrased":"Could you please take a look?"}`)
}

func (s *testServer) do(method, path, contentType, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) postJSON(path, body string) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, path, "application/json", body)
}

func TestRephrase_EmptyMessageNeverCallsUpstream(t *testing.T) {
	s := newTestServer(t, okUpstream)

	for _, body := range []string{`{}`, `{"message":""}`, `{"message":"   "}`, ``} {
		rec := s.postJSON("/rephrase", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.JSONEq(t, `{"error":"Message is required"}`, rec.Body.String())
	}
	assert.Equal(t, int32(0), s.upstreamCalls.Load())
}

func TestRephrase_RelaysUpstreamPayload(t *testing.T) {
	s := newTestServer(t, okUpstream)

	rec := s.postJSON("/rephrase", `{"message":"Fix it."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"original":"Fix it.","tone":"angry","rephrased":"Could you please take a look?"}`, rec.Body.String())
	assert.Equal(t, int32(1), s.upstreamCalls.Load())
}

func TestRephrase_FormBody(t *testing.T) {
	s := newTestServer(t, okUpstream)

	rec := s.do(http.MethodPost, "/rephrase", "application/x-www-form-urlencoded",
		url.Values{"message": {"Fix it."}}.Encode())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), s.upstreamCalls.Load())
}

func TestRephrase_UpstreamFailure(t *testing.T) {
	s := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"detail":"model overloaded"}`)
	})

	rec := s.postJSON("/rephrase", `{"message":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Rephrase failed","details":{"detail":"model overloaded"}}`, rec.Body.String())
	assert.Equal(t, int32(1), s.upstreamCalls.Load(), "no retry")
}

func TestRephrase_MalformedJSON(t *testing.T) {
	s := newTestServer(t, okUpstream)

	rec := s.postJSON("/rephrase", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, int32(0), s.upstreamCalls.Load())
}

func TestUsage_MissingUserLeavesStoreUnchanged(t *testing.T) {
	s := newTestServer(t, okUpstream)

	rec := s.postJSON("/usage", `{"ts":1700000000000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"ts & user required"}`, rec.Body.String())

	rec = s.postJSON("/usage", `{"user":"anon"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, int64(0), s.countRows("usage"))
}

func TestUsage_RecordsEvent(t *testing.T) {
	s := newTestServer(t, okUpstream)

	rec := s.postJSON("/usage", `{"ts":1709283600000,"user":"anon","tone":"angry","original":"Fix it.","rephrased":"Could you?"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	// ts as a numeric string, optional fields omitted
	rec = s.do(http.MethodPost, "/usage", "application/x-www-form-urlencoded", "ts=1709283600001&user=anon")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	events, err := s.usage.List(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "angry", *events[0].Tone)
	assert.Nil(t, events[1].Tone)
	assert.Equal(t, int64(1709283600001), events[1].Timestamp)
}

func TestStats_ScenarioOverTwoDays(t *testing.T) {
	s := newTestServer(t, okUpstream)

	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC).UnixMilli()
	day2 := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC).UnixMilli()
	for _, body := range []string{
		`{"ts":` + itoa(day1) + `,"user":"a","tone":"angry"}`,
		`{"ts":` + itoa(day1+1000) + `,"user":"b","tone":"angry"}`,
		`{"ts":` + itoa(day2) + `,"user":"a"}`,
	} {
		require.Equal(t, http.StatusNoContent, s.postJSON("/usage", body).Code)
	}

	rec := s.do(http.MethodGet, "/stats/daily", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"day":"2024-03-01","total":2,"unique_users":2},
		{"day":"2024-03-02","total":1,"unique_users":1}
	]`, rec.Body.String())

	rec = s.do(http.MethodGet, "/stats/daily-tone", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[
		{"day":"2024-03-01","tone":"angry","total":2},
		{"day":"2024-03-02","tone":"neutral","total":1}
	]`, rec.Body.String())
}

func TestStats_EmptyStoreIsEmptyArray(t *testing.T) {
	s := newTestServer(t, okUpstream)

	for _, path := range []string{"/stats/daily", "/stats/daily-tone"} {
		rec := s.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	}
}

type failingStats struct{}

func (failingStats) DailyCounts(context.Context) ([]model.DailyCount, error) {
	return nil, errors.New("disk I/O error")
}

func (failingStats) DailyToneCounts(context.Context) ([]model.DailyToneCount, error) {
	return nil, errors.New("disk I/O error")
}

func TestStats_StorageFailure(t *testing.T) {
	h := NewHandler(Deps{Stats: failingStats{}, Logger: slog.New(slog.DiscardHandler)})
	r := chi.NewRouter()
	h.Mount(r, nil)

	for _, path := range []string{"/stats/daily", "/stats/daily-tone"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "disk", "storage errors stay generic")
	}
}

func TestEncrypt(t *testing.T) {
	s := newTestServer(t, okUpstream)

	rec := s.postJSON("/encrypt", `{"message":"hello team"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp EncryptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)

	c, err := cipher.New("test-secret")
	require.NoError(t, err)
	plain, err := c.Decrypt(resp.Encrypted)
	require.NoError(t, err)
	assert.Equal(t, "hello team", plain)
	assert.Equal(t, int64(1), s.countRows("encrypted_messages"))

	rec = s.postJSON("/encrypt", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Message is required"}`, rec.Body.String())
}

func TestEncrypt_NoKey(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	logger := slog.New(slog.DiscardHandler)
	h := NewHandler(Deps{Encryptor: service.NewEncryptionService(db, nil, logger, nil), Logger: logger})
	r := chi.NewRouter()
	h.Mount(r, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/encrypt", strings.NewReader(`{"message":"hi"}`)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Encryption failed", resp.Error)
	assert.Equal(t, cipher.ErrNoKey.Error(), resp.Details)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, okUpstream)

	rec := s.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"test"}`, rec.Body.String())
}

func TestMount_RephraseLimitAppliesOnlyToRephrase(t *testing.T) {
	var limited atomic.Int32
	limit := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limited.Add(1)
			next.ServeHTTP(w, r)
		})
	}

	h := NewHandler(Deps{Rephraser: staticRephraser{}, Stats: failingStats{}, Logger: slog.New(slog.DiscardHandler)})
	r := chi.NewRouter()
	h.Mount(r, limit)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stats/daily", nil))
	assert.Equal(t, int32(0), limited.Load())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/rephrase", strings.NewReader(`{"message":"hi"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int32(1), limited.Load())
}

type staticRephraser struct{}

func (staticRephraser) Rephrase(context.Context, string) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func TestFields(t *testing.T) {
	f := fields{
		"ts":    json.Number("1709283600000"),
		"tsStr": " 1709283600000 ",
		"tsF":   json.Number("1.7e12"),
		"bad":   "soon",
		"n":     json.Number("42"),
		"b":     true,
		"null":  nil,
	}

	assert.Equal(t, int64(1709283600000), *f.Int64("ts"))
	assert.Equal(t, int64(1709283600000), *f.Int64("tsStr"))
	assert.Equal(t, int64(1700000000000), *f.Int64("tsF"))
	assert.Nil(t, f.Int64("bad"))
	assert.Nil(t, f.Int64("missing"))
	assert.Nil(t, f.Int64("null"))

	assert.Equal(t, "42", *f.Text("n"))
	assert.Equal(t, "true", *f.Text("b"))
	assert.Nil(t, f.Text("null"))
	assert.Nil(t, f.Text("missing"))
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
