package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peatracker/internal/core"
	"peatracker/internal/services"
	"peatracker/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *services.Tracker) {
	t.Helper()
	cfg := services.DefaultTrackerConfig()
	cfg.Location = time.UTC
	tr := services.NewTracker(memory.New(), nil, nil, cfg)
	srv := NewServer(":0", tr, nil)
	t.Cleanup(func() { srv.rateLimiter.Stop() })
	return srv, tr
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.True(t, strings.HasPrefix(rr.Header().Get("X-Request-ID"), "req_"))
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	assert.Equal(t, "abc", rr.Header().Get("X-Request-ID"))
}

func TestConfigLifecycle(t *testing.T) {
	srv, tr := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/config", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decodeBody[configResponse](t, rr).Configured)

	rr = do(t, srv, http.MethodPut, "/api/config", `{"startDate":"2024-01-01","startCapital":"10000","startDeposited":10000}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NotNil(t, tr.Config())
	assertDecimal(t, "10000", tr.Config().StartCapital)

	rr = do(t, srv, http.MethodDelete, "/api/config", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Nil(t, tr.Config())
}

func TestConfigValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"missing start date", `{"startCapital":"1"}`, http.StatusUnprocessableEntity},
		{"malformed date", `{"startDate":"01/01/2024"}`, http.StatusUnprocessableEntity},
		{"unknown field", `{"startDate":"2024-01-01","extra":1}`, http.StatusBadRequest},
		{"not json", `startDate=2024-01-01`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPut, "/api/config", tt.body)
			assert.Equal(t, tt.code, rr.Code, rr.Body.String())
			assert.NotEmpty(t, decodeBody[errorResponse](t, rr).Error)
		})
	}

	rr := do(t, srv, http.MethodPut, "/api/config", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestEntriesAndPerformance(t *testing.T) {
	srv, _ := newTestServer(t)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPut, "/api/config",
		`{"startDate":"2024-01-01","startCapital":"10000","startDeposited":"10000"}`).Code)
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/api/deposits",
		`{"date":"2024-01-02","amount":"500","note":"monthly"}`).Code)

	rr := do(t, srv, http.MethodPut, "/api/entries/2024-01-02", `{"capital":"10605"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = do(t, srv, http.MethodGet, "/api/entries", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]core.Entry](t, rr), 1)

	rr = do(t, srv, http.MethodGet, "/api/performance/2024-01-02", "")
	require.Equal(t, http.StatusOK, rr.Code)
	p := decodeBody[core.DayPerformance](t, rr)
	assertDecimal(t, "10000", p.PreviousCapital)
	assertDecimal(t, "500", p.DepositsOfDay)
	assertDecimal(t, "105", p.GainAmount)
	assertDecimal(t, "1", p.GainPercent)

	rr = do(t, srv, http.MethodGet, "/api/performance/2024-01-03", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, http.MethodGet, "/api/performance?start=2024-01-01&end=2024-01-31", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[[]core.DayPerformance](t, rr), 1)

	rr = do(t, srv, http.MethodGet, "/api/gain?start=2024-01-01&end=2024-01-31", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assertDecimal(t, "105", decodeBody[gainResponse](t, rr).Gain)

	rr = do(t, srv, http.MethodDelete, "/api/entries/2024-01-02", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(t, srv, http.MethodDelete, "/api/entries/2024-01-02", "")
	assert.Equal(t, http.StatusNoContent, rr.Code, "deleting a missing entry is not an error")
}

func TestEntryValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPut, "/api/entries/2024-13-01", `{"capital":"1"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPut, "/api/entries/2024-01-01", `{"note":"x"}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPut, "/api/entries/2024-01-01",
		`{"capital":"1","note":"`+strings.Repeat("x", 501)+`"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/performance?start=2024-01-01", "").Code)
}

func TestDeposits(t *testing.T) {
	srv, tr := newTestServer(t)

	rr := do(t, srv, http.MethodPost, "/api/deposits", `{"date":"2024-01-10","amount":500}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	first := decodeBody[core.Deposit](t, rr)
	assert.NotEmpty(t, first.ID)

	rr = do(t, srv, http.MethodPost, "/api/deposits", `{"amount":"250.50"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	second := decodeBody[core.Deposit](t, rr)
	assert.Equal(t, tr.Today(), second.Date)

	rr = do(t, srv, http.MethodGet, "/api/deposits", "")
	require.Equal(t, http.StatusOK, rr.Code)
	listed := decodeBody[[]core.Deposit](t, rr)
	require.Len(t, listed, 2)
	assert.Equal(t, second.ID, listed[0].ID, "newest first")

	rr = do(t, srv, http.MethodGet, "/api/ceiling", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var ceiling struct {
		Remaining decimal.Decimal `json:"remaining"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &ceiling))
	assertDecimal(t, "149249.5", ceiling.Remaining)

	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/deposits/"+first.ID, "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/deposits/"+first.ID, "").Code)
	assert.Len(t, tr.Deposits(), 1)

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPost, "/api/deposits", `{"date":"2024-01-10"}`).Code)
}

func TestDCA(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/dca", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decodeBody[core.DCAConfig](t, rr).Enabled)

	rr = do(t, srv, http.MethodGet, "/api/dca/dates?year=2024&month=6", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[datesResponse](t, rr).Dates)

	rr = do(t, srv, http.MethodPatch, "/api/dca", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decodeBody[core.DCAConfig](t, rr)
	assert.True(t, updated.Enabled)
	assert.Equal(t, 15, updated.DayOfMonth2)

	rr = do(t, srv, http.MethodGet, "/api/dca/dates?year=2024&month=6", "")
	require.Equal(t, http.StatusOK, rr.Code)
	dates := decodeBody[datesResponse](t, rr).Dates
	require.Len(t, dates, 2)
	assert.Equal(t, "2024-06-03", dates[0].String())
	assert.Equal(t, "2024-06-17", dates[1].String())

	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPatch, "/api/dca", `{"dayOfMonth1":32}`).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, do(t, srv, http.MethodPatch, "/api/dca", `{"adjustWeekend":"sideways"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/api/dca/dates?month=13", "").Code)
}

func TestSummaryAndStats(t *testing.T) {
	srv, _ := newTestServer(t)

	rr := do(t, srv, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var summary struct {
		Configured bool `json:"configured"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.False(t, summary.Configured)

	rr = do(t, srv, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, rr.Code)
	stats := decodeBody[core.Stats](t, rr)
	assert.Nil(t, stats.BestDay)
	assert.Zero(t, stats.PositiveDays)
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	rr := do(t, srv, http.MethodPost, "/api/summary", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMutationsAreRateLimited(t *testing.T) {
	srv, _ := newTestServer(t)
	srv.rateLimiter.SetLimit(2)

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusNoContent, do(t, srv, http.MethodDelete, "/api/deposits/x", "").Code)
	}
	rr := do(t, srv, http.MethodDelete, "/api/deposits/x", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/api/deposits", "").Code, "reads are not limited")
}

func TestReadyReportsMiddlewareMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	do(t, srv, http.MethodGet, "/.env", "")
	rr := do(t, srv, http.MethodGet, "/readyz", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Status   string `json:"status"`
		Requests struct {
			TotalRequests int64 `json:"total_requests"`
		} `json:"requests"`
		Security struct {
			SuspiciousRequests int64 `json:"suspicious_requests"`
		} `json:"security"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, int64(2), body.Requests.TotalRequests)
	assert.Equal(t, int64(1), body.Security.SuspiciousRequests)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}
