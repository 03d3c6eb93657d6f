package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/orderdesk/internal/engine"
	"github.com/atelier-ops/orderdesk/internal/model"
	"github.com/atelier-ops/orderdesk/internal/store"
)

type fixedFetcher struct {
	rows []model.Order
}

func (f *fixedFetcher) Fetch(_ context.Context) ([]model.Order, error) {
	out := make([]model.Order, len(f.rows))
	for i, row := range f.rows {
		out[i] = row.Clone()
	}
	return out, nil
}

func newTestServer(t *testing.T, rows ...model.Order) *httptest.Server {
	t.Helper()

	dir := t.TempDir()
	cache := store.NewCache(filepath.Join(dir, "orders_cache.json"))
	manual := store.NewManual(filepath.Join(dir, "manual_orders.json"))
	log := store.NewCompletionLog(filepath.Join(dir, "order_completion_log.json"))
	sequence := store.NewSequence(filepath.Join(dir, "order_sequence.json"))
	for _, load := range []func() error{cache.Load, manual.Load, log.Load, sequence.Load} {
		require.NoError(t, load())
	}

	eng := engine.New(engine.Options{
		Cache:    cache,
		Manual:   manual,
		Log:      log,
		Sequence: sequence,
		Fetcher:  &fixedFetcher{rows: rows},
	})

	srv := httptest.NewServer(newRouter(eng))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, role string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Role", role)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestSyncAndListOrders(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, model.Order{"Transaction ID": "t-1", "Name": "Alice", "Data": "01.06.2025"})

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders/sync?mode=full", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "full", result["mode"])

	resp, err := http.Get(srv.URL + "/api/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	orders := decodeBody[[]map[string]any](t, resp)
	require.Len(t, orders, 1)
	assert.Equal(t, "t-1", orders[0]["transaction"])
	assert.Equal(t, "Alice", orders[0]["buyername"])
}

func TestSyncEmptyFeedReturnsBadGateway(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders/sync?mode=full", nil, "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestManualOrderLifecycle(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders/manual", map[string]any{"buyername": "Alice"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	created := decodeBody[map[string]any](t, resp)
	manualID, _ := created["__manualId"].(string)
	require.NotEmpty(t, manualID)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/orders/manual/"+manualID, map[string]any{"buyername": "Alice2"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Delete without the admin role is refused.
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/orders/manual/"+manualID, nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/orders/manual/"+manualID, nil, "admin")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/orders/manual/"+manualID, nil, "admin")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestEditEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, model.Order{"Transaction ID": "t-1", "Name": "Alice", "Data": "01.06.2025"})
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders/sync?mode=full", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/orders/t-1/edit", map[string]any{"Ready": true}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decodeBody[map[string]any](t, resp)
	assert.Equal(t, true, result["success"])

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/orders/missing/edit", map[string]any{"Ready": true}, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSequenceEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp := doJSON(t, http.MethodPut, srv.URL+"/api/orders/sequence", map[string]any{"sequence": []string{"t-2", "t-1"}}, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/orders/sequence", map[string]any{"sequence": []string{"t-2", "t-1"}}, "admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/api/orders/sequence")
	require.NoError(t, err)
	defer getResp.Body.Close()
	got := decodeBody[map[string][]string](t, getResp)
	assert.Equal(t, []string{"t-2", "t-1"}, got["sequence"])
}

func TestCronRefreshAllowsLoopback(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, model.Order{"Transaction ID": "t-1", "Name": "Alice", "Data": "01.06.2025"})

	// httptest connections originate from 127.0.0.1.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders/refresh-cron", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStatusEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, model.Order{"Transaction ID": "t-1", "Name": "Alice", "Data": "01.06.2025"})
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders/sync?mode=full", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/api/status")
	require.NoError(t, err)
	defer getResp.Body.Close()

	status := decodeBody[map[string]any](t, getResp)
	assert.Equal(t, float64(1), status["cached_orders"])
	assert.NotNil(t, status["last_full_sync"])
}

func TestDashboardStatsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, model.Order{"Transaction ID": "t-1", "Name": "Alice", "Data": "01.06.2025"})
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/orders/sync?mode=full", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	getResp, err := http.Get(srv.URL + "/api/dashboard/orders-stats")
	require.NoError(t, err)
	defer getResp.Body.Close()

	stats := decodeBody[map[string]any](t, getResp)
	assert.Equal(t, float64(1), stats["pending"])
	trend, ok := stats["monthly_trend"].([]any)
	require.True(t, ok)
	assert.Len(t, trend, 30)
}
