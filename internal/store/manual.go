package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atelier-ops/orderdesk/internal/model"
)

// Manual persists locally authored orders, independent of the sheet
// feed. The merge strategies never touch this store.
type Manual struct {
	mu     sync.Mutex
	path   string
	orders []model.Order
}

// NewManual creates a manual order store backed by the given file.
func NewManual(path string) *Manual {
	return &Manual{path: path}
}

// Load reads and normalizes the persisted manual orders. Entries from
// older versions are coerced onto the fixed schema: missing fields take
// defaults, ids and creation times are backfilled, and the normalized
// form is written back.
func (m *Manual) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var raw []model.Order
	found, err := readJSONFile(m.path, &raw)
	if err != nil {
		zap.L().Warn("manual store load failed, starting empty", zap.Error(err))
		m.orders = nil
		return nil
	}
	if !found {
		m.orders = nil
		return nil
	}

	normalized := make([]model.Order, 0, len(raw))
	for _, entry := range raw {
		out := model.DefaultManualOrder()
		for _, field := range model.ManualOrderFields {
			if v, ok := entry[field]; ok && v != nil {
				out[field] = v
			}
		}
		if out.GetString("transaction") == "" {
			out["transaction"] = GenerateManualTransaction()
		}
		manualID := entry.GetString("__manualId")
		if manualID == "" {
			manualID = uuid.New().String()
		}
		out["__manualId"] = manualID
		if out.GetString("created_at") == "" {
			out["created_at"] = time.Now().UTC().Format("2006-01-02T15:04:05")
		}
		out["isManual"] = true
		normalized = append(normalized, out)
	}
	m.orders = normalized

	if err := writeJSONFile(m.path, m.ordersOrEmpty()); err != nil {
		return eris.Wrap(err, "manual: persist normalized")
	}
	zap.L().Debug("loaded manual orders", zap.Int("records", len(normalized)))
	return nil
}

// GenerateManualTransaction produces a generated identifier of the form
// MANUAL-XXXXXXXX (8 uppercase hex characters).
func GenerateManualTransaction() string {
	return ManualTransactionFor(uuid.New().String())
}

// ManualTransactionFor derives the generated transaction id from a
// manual id, so a record keeps the same identity on re-normalization.
func ManualTransactionFor(manualID string) string {
	id := manualID
	if len(id) > 8 {
		id = id[:8]
	}
	upper := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper[i] = c
	}
	return "MANUAL-" + string(upper)
}

// Snapshot returns a deep copy of the manual orders.
func (m *Manual) Snapshot() []model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Order, len(m.orders))
	for i, o := range m.orders {
		out[i] = o.Clone()
	}
	return out
}

// Len returns the number of manual orders.
func (m *Manual) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// Mutate applies fn to the manual order list under the store lock and
// persists the result when fn reports a change.
func (m *Manual) Mutate(fn func(orders []model.Order) ([]model.Order, bool)) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, changed := fn(m.orders)
	if !changed {
		return false, nil
	}
	m.orders = next
	if err := writeJSONFile(m.path, m.ordersOrEmpty()); err != nil {
		return true, eris.Wrap(err, "manual: persist")
	}
	return true, nil
}

func (m *Manual) ordersOrEmpty() []model.Order {
	if m.orders == nil {
		return []model.Order{}
	}
	return m.orders
}
