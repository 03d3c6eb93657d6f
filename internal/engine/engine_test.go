package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/orderdesk/internal/model"
	"github.com/atelier-ops/orderdesk/internal/store"
)

// stubFetcher serves canned rows. Each call hands out fresh clones so a
// merge mutating its rows never pollutes the next fetch.
type stubFetcher struct {
	mu   sync.Mutex
	rows []model.Order
	err  error
}

func (s *stubFetcher) Fetch(_ context.Context) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]model.Order, len(s.rows))
	for i, row := range s.rows {
		out[i] = row.Clone()
	}
	return out, nil
}

func (s *stubFetcher) set(rows ...model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
}

// testClock is an adjustable now() source.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	engine  *Engine
	fetcher *stubFetcher
	clock   *testClock
	cache   *store.Cache
	log     *store.CompletionLog
	manual  *store.Manual
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	cache := store.NewCache(filepath.Join(dir, "orders_cache.json"))
	manual := store.NewManual(filepath.Join(dir, "manual_orders.json"))
	log := store.NewCompletionLog(filepath.Join(dir, "order_completion_log.json"))
	sequence := store.NewSequence(filepath.Join(dir, "order_sequence.json"))
	for _, load := range []func() error{cache.Load, manual.Load, log.Load, sequence.Load} {
		require.NoError(t, load())
	}

	fetch := &stubFetcher{}
	clock := &testClock{t: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}

	eng := New(Options{
		Cache:      cache,
		Manual:     manual,
		Log:        log,
		Sequence:   sequence,
		Fetcher:    fetch,
		QuickCount: 20,
		Now:        clock.now,
	})

	return &testEnv{
		engine:  eng,
		fetcher: fetch,
		clock:   clock,
		cache:   cache,
		log:     log,
		manual:  manual,
	}
}

// sheetRow builds a fetched row the way the sheet export names its
// columns.
func sheetRow(transaction, name, date string) model.Order {
	return model.Order{
		"Transaction ID": transaction,
		"Name":           name,
		"Data":           date,
		"Produce":        "FALSE",
		"Ready":          "FALSE",
		"Shipped":        "FALSE",
		"Note":           "",
	}
}

func (env *testEnv) cachedByID(t *testing.T, id string) model.Order {
	t.Helper()
	for _, order := range env.cache.Snapshot() {
		if order.Identifier("") == id {
			return order
		}
	}
	t.Fatalf("order %s not in cache", id)
	return nil
}
