package store

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/orderdesk/internal/model"
)

var manualTransactionRe = regexp.MustCompile(`^MANUAL-[0-9A-F]{8}$`)

func TestManualLoadNormalizesLegacyEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manual_orders.json")
	legacy := `[{"buyername":"Alice","Produce":"TRUE"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	manual := NewManual(path)
	require.NoError(t, manual.Load())

	orders := manual.Snapshot()
	require.Len(t, orders, 1)
	order := orders[0]

	assert.Equal(t, "Alice", order.GetString("buyername"))
	assert.Equal(t, "TRUE", order.GetString("Produce"))
	assert.Equal(t, "FALSE", order.GetString("Ready"), "missing fields take defaults")
	assert.Regexp(t, manualTransactionRe, order.GetString("transaction"))
	assert.NotEmpty(t, order.GetString("__manualId"))
	assert.NotEmpty(t, order.GetString("created_at"))
	assert.Equal(t, true, order["isManual"])

	// Normalized form was written back.
	reloaded := NewManual(path)
	require.NoError(t, reloaded.Load())
	require.Len(t, reloaded.Snapshot(), 1)
	assert.Equal(t, order.GetString("transaction"), reloaded.Snapshot()[0].GetString("transaction"))
}

func TestManualTransactionFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "MANUAL-DEADBEEF", ManualTransactionFor("deadbeef-0000-1111"))
	assert.Equal(t, "MANUAL-AB", ManualTransactionFor("ab"))
	assert.Regexp(t, manualTransactionRe, GenerateManualTransaction())
}

func TestManualMutatePersists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "manual_orders.json")
	manual := NewManual(path)
	require.NoError(t, manual.Load())

	_, err := manual.Mutate(func(orders []model.Order) ([]model.Order, bool) {
		return append(orders, model.Order{"__manualId": "m-1", "transaction": "MANUAL-AAAA1111"}), true
	})
	require.NoError(t, err)

	reloaded := NewManual(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, 1, reloaded.Len())
}
