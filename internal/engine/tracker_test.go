package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ops/orderdesk/internal/model"
)

func completionOrder(id string, produce, ready, shipped bool) model.Order {
	return model.Order{
		"transaction": id,
		"Produce":     model.FlagString(produce),
		"Ready":       model.FlagString(ready),
		"Shipped":     model.FlagString(shipped),
	}
}

func TestTrackEdgeTrigger(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	// F,F,F then T,T,F: still incomplete, nothing recorded.
	env.engine.Track(ctx, completionOrder("t-1", false, false, false), "")
	env.engine.Track(ctx, completionOrder("t-1", true, true, false), "")
	assert.Nil(t, env.log.Get("t-1"))

	// T,T,T: exactly one history entry at the transition.
	env.engine.Track(ctx, completionOrder("t-1", true, true, true), "")
	entry := env.log.Get("t-1")
	require.NotNil(t, entry)
	assert.True(t, entry.IsComplete)
	require.NotNil(t, entry.CompletedAt)
	assert.Len(t, entry.History, 1)

	// Observing the same complete state again is a no-op.
	env.engine.Track(ctx, completionOrder("t-1", true, true, true), "")
	assert.Len(t, env.log.Get("t-1").History, 1)

	// Reversal clears completed_at, keeps history.
	env.engine.Track(ctx, completionOrder("t-1", true, false, true), "")
	entry = env.log.Get("t-1")
	assert.False(t, entry.IsComplete)
	assert.Nil(t, entry.CompletedAt)
	assert.Len(t, entry.History, 1)

	// Re-completing appends a second, distinct entry.
	env.clock.advance(time.Hour)
	env.engine.Track(ctx, completionOrder("t-1", true, true, true), "")
	entry = env.log.Get("t-1")
	require.Len(t, entry.History, 2)
	assert.False(t, entry.History[0].Equal(entry.History[1]))
}

func TestTrackHistoryCapAcrossCycles(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < model.CompletionHistoryCap+1; i++ {
		env.engine.Track(ctx, completionOrder("t-1", true, true, true), "")
		env.clock.advance(time.Minute)
		env.engine.Track(ctx, completionOrder("t-1", true, false, true), "")
		env.clock.advance(time.Minute)
	}

	entry := env.log.Get("t-1")
	require.NotNil(t, entry)
	assert.Len(t, entry.History, model.CompletionHistoryCap)

	// First cycle's timestamp was evicted.
	first := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	assert.False(t, entry.History[0].Equal(first))
}

func TestTrackIgnoresIdentifierlessOrders(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.engine.Track(context.Background(), model.Order{"Produce": "TRUE", "Ready": "TRUE", "Shipped": "TRUE"}, "")
	assert.Equal(t, 0, env.log.Len())
}

func TestTrackExplicitHintWins(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.engine.Track(context.Background(), completionOrder("ignored", true, true, true), "hinted")
	assert.NotNil(t, env.log.Get("hinted"))
	assert.Nil(t, env.log.Get("ignored"))
}

func TestReconcileCorrectsDrift(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	env.fetcher.set(sheetRow("t-1", "Alice", "01.06.2025"))
	_, err := env.engine.RefreshFull(ctx)
	require.NoError(t, err)

	// Simulate drift from a write that bypassed the tracker: the log
	// says complete, the live order does not.
	_, err = env.log.Mutate(func(entries map[string]*model.CompletionEntry) bool {
		entry := &model.CompletionEntry{}
		entry.RecordCompletion(env.clock.now())
		entries["t-1"] = entry
		return true
	})
	require.NoError(t, err)

	corrected := env.engine.Reconcile(ctx)
	assert.Equal(t, 1, corrected)

	entry := env.log.Get("t-1")
	assert.False(t, entry.IsComplete)
	assert.Len(t, entry.History, 1, "reconciliation never touches history")

	// A matching log is left alone.
	assert.Equal(t, 0, env.engine.Reconcile(ctx))
}

func TestRemoveCompletion(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()

	env.engine.Track(ctx, completionOrder("t-1", true, true, true), "")
	require.Equal(t, 1, env.log.Len())

	env.engine.RemoveCompletion(ctx, "t-1")
	assert.Equal(t, 0, env.log.Len())

	env.engine.RemoveCompletion(ctx, "")
	env.engine.RemoveCompletion(ctx, "missing")
}
