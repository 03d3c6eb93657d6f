package engine

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/orderdesk/internal/model"
)

var generatedTransactionRe = regexp.MustCompile(`^MANUAL-[0-9A-F]{8}$`)

func TestCreateManualGeneratesTransaction(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, err := env.engine.CreateManual(context.Background(), model.Order{
		"buyername":   "Alice",
		"productname": "Ring",
	})
	require.NoError(t, err)

	assert.Regexp(t, generatedTransactionRe, order.GetString("transaction"))
	assert.Equal(t, true, order["isManual"])
	assert.NotEmpty(t, order.GetString("__manualId"))
	assert.NotEmpty(t, order.GetString("created_at"))
	assert.NotEmpty(t, order.GetString("_sortKey"))
	assert.Equal(t, "FALSE", order.GetString("Produce"), "stage flags default to FALSE")
	assert.Equal(t, 1, env.manual.Len())
}

func TestCreateManualIgnoresUnknownFields(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, err := env.engine.CreateManual(context.Background(), model.Order{
		"buyername":       "Alice",
		"not_a_field":     "dropped",
		"__proto__":       "dropped",
		"Personalization": "initials",
	})
	require.NoError(t, err)

	_, ok := order["not_a_field"]
	assert.False(t, ok)
	assert.Equal(t, "initials", order.GetString("Personalization"))
}

func TestCreateManualKeepsSuppliedTransaction(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, err := env.engine.CreateManual(context.Background(), model.Order{"transaction": "CUSTOM-1"})
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM-1", order.GetString("transaction"))
}

func TestCreateManualTracksCompletion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	order, err := env.engine.CreateManual(context.Background(), model.Order{
		"Produce": "TRUE", "Ready": "TRUE", "Shipped": "TRUE",
	})
	require.NoError(t, err)

	entry := env.log.Get(order.GetString("transaction"))
	require.NotNil(t, entry)
	assert.True(t, entry.IsComplete)
}

func TestUpdateManual(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateManual(ctx, model.Order{"buyername": "Alice"})
	require.NoError(t, err)
	manualID := order.GetString("__manualId")

	updated, err := env.engine.UpdateManual(ctx, manualID, model.Order{
		"buyername":   "Alice Updated",
		"Produce":     "yes",
		"not_a_field": "dropped",
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice Updated", updated.GetString("buyername"))
	assert.Equal(t, "TRUE", updated.GetString("Produce"), "loose truthy values normalize to the flag literal")
	_, ok := updated["not_a_field"]
	assert.False(t, ok)

	_, err = env.engine.UpdateManual(ctx, "no-such-id", model.Order{"buyername": "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateManualIdentityChangeDropsOldLogEntry(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateManual(ctx, model.Order{
		"transaction": "OLD-ID",
		"Produce":     "TRUE", "Ready": "TRUE", "Shipped": "TRUE",
	})
	require.NoError(t, err)
	require.NotNil(t, env.log.Get("OLD-ID"))

	_, err = env.engine.UpdateManual(ctx, order.GetString("__manualId"), model.Order{"transaction": "NEW-ID"})
	require.NoError(t, err)

	assert.Nil(t, env.log.Get("OLD-ID"), "entry under the old identity removed")
	assert.NotNil(t, env.log.Get("NEW-ID"))
}

func TestDeleteManualRequiresPrivilege(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateManual(ctx, model.Order{"buyername": "Alice"})
	require.NoError(t, err)
	manualID := order.GetString("__manualId")

	err = env.engine.DeleteManual(ctx, manualID, false)
	assert.ErrorIs(t, err, ErrPrivilege)
	assert.Equal(t, 1, env.manual.Len())

	require.NoError(t, env.engine.DeleteManual(ctx, manualID, true))
	assert.Equal(t, 0, env.manual.Len())

	err = env.engine.DeleteManual(ctx, manualID, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteManualRemovesCompletionEntries(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	order, err := env.engine.CreateManual(ctx, model.Order{
		"Produce": "TRUE", "Ready": "TRUE", "Shipped": "TRUE",
	})
	require.NoError(t, err)
	transaction := order.GetString("transaction")
	require.NotNil(t, env.log.Get(transaction))

	require.NoError(t, env.engine.DeleteManual(ctx, order.GetString("__manualId"), true))
	assert.Nil(t, env.log.Get(transaction))
}

func TestCreateManualReplacesSameManualID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.engine.CreateManual(ctx, model.Order{"__manualId": "m-1", "buyername": "First"})
	require.NoError(t, err)
	_, err = env.engine.CreateManual(ctx, model.Order{"__manualId": "m-1", "buyername": "Second"})
	require.NoError(t, err)

	orders := env.manual.Snapshot()
	require.Len(t, orders, 1)
	assert.Equal(t, "Second", orders[0].GetString("buyername"))
}
