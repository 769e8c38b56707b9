// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package dashboard

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/polite/internal/model"
)

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(BypassHeader) != "true" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/stats/daily-tone":
			_, _ = w.Write([]byte(`[{"day":"2024-03-01","tone":"angry","total":2}]`))
		case "/stats/daily":
			_, _ = w.Write([]byte(`[{"day":"2024-03-01","total":2,"unique_users":1}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	ctx := context.Background()

	tone, err := c.FetchDailyTone(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.DailyToneCount{{Day: "2024-03-01", Tone: "angry", Total: 2}}, tone)

	daily, err := c.FetchDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.DailyCount{{Day: "2024-03-01", Total: 2, UniqueUsers: 1}}, daily)
}

func TestClient_FetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Failed to load stats"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).FetchDailyTone(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestNormalizeTone(t *testing.T) {
	tests := map[string]string{
		"angry":     "angry",
		"  Formal ": "formal",
		"INFORMAL":  "informal",
		"":          "neutral",
		"   ":       "neutral",
		"Sarcastic": "sarcastic",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeTone(in), "NormalizeTone(%q)", in)
	}
}

func TestPivot(t *testing.T) {
	rows := []model.DailyToneCount{
		{Day: "2024-03-02", Tone: "formal", Total: 1},
		{Day: "2024-03-01", Tone: "Angry", Total: 2},
		{Day: "2024-03-01", Tone: "neutral", Total: 1},
		{Day: "2024-03-01", Tone: "", Total: 3},
		{Day: "2024-03-01", Tone: "sarcastic", Total: 9},
	}

	got := Pivot(rows, model.KnownTones)
	require.Len(t, got, 2)

	assert.Equal(t, "2024-03-01", got[0].Day)
	assert.Equal(t, map[string]int64{"angry": 2, "informal": 0, "formal": 0, "neutral": 4}, got[0].Counts)
	assert.Equal(t, "2024-03-02", got[1].Day)
	assert.Equal(t, int64(1), got[1].Count("formal"))
	assert.Zero(t, got[1].Count("angry"))
}

func TestPivot_Empty(t *testing.T) {
	assert.Empty(t, Pivot(nil, model.KnownTones))
}

func TestParseRange(t *testing.T) {
	for in, want := range map[string]Range{"7d": RangeWeek, "30D": RangeMonth, "90d": RangeQuarter, "all": RangeAll, "": RangeAll} {
		got, err := ParseRange(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseRange("1y")
	assert.Error(t, err)
}

func TestFilter(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	rows := []Row{{Day: "2024-02-01"}, {Day: "2024-03-03"}, {Day: "2024-03-04"}, {Day: "2024-03-10"}}

	week := Filter(rows, RangeWeek, now)
	require.Len(t, week, 2)
	assert.Equal(t, "2024-03-04", week[0].Day)

	assert.Len(t, Filter(rows, RangeMonth, now), 3)
	assert.Len(t, Filter(rows, RangeAll, now), 4)
}

func TestWriteCSV(t *testing.T) {
	rows := Pivot([]model.DailyToneCount{
		{Day: "2024-03-01", Tone: "angry", Total: 2},
		{Day: "2024-03-02", Tone: "formal", Total: 1},
	}, model.KnownTones)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows, model.KnownTones))

	want := "Day,angry,informal,formal,neutral\n" +
		"2024-03-01,2,0,0,0\n" +
		"2024-03-02,0,0,1,0\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, model.KnownTones))
	assert.Equal(t, "Day,angry,informal,formal,neutral\n", buf.String())
}

func TestExportFilename(t *testing.T) {
	now := time.Date(2024, 3, 9, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "tone_analytics_2024-03-09.csv", ExportFilename(now))
}
