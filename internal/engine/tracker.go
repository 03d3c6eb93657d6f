package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atelier-ops/orderdesk/internal/model"
)

// Track edge-detects the completion transition for one order. A
// transition into complete appends a timestamped history entry; a
// reversal clears completed_at but keeps the history. Matching stored
// state is a no-op, so re-observing the same order never duplicates an
// event. Archive writes are best-effort.
func (e *Engine) Track(ctx context.Context, order model.Order, hint string) {
	id := order.Identifier(hint)
	if id == "" {
		return
	}

	complete := order.Complete()
	var completedAt time.Time
	changed, err := e.log.Mutate(func(entries map[string]*model.CompletionEntry) bool {
		entry := entries[id]
		wasComplete := entry != nil && entry.IsComplete

		switch {
		case complete && !wasComplete:
			if entry == nil {
				entry = &model.CompletionEntry{}
				entries[id] = entry
			}
			completedAt = e.now()
			entry.RecordCompletion(completedAt)
			return true
		case !complete && wasComplete:
			entry.ClearCompletion()
			return true
		default:
			return false
		}
	})
	if err != nil {
		zap.L().Warn("completion log persist failed", zap.String("transaction", id), zap.Error(err))
	}
	if !changed {
		return
	}

	if complete {
		zap.L().Info("order completed", zap.String("transaction", id))
		if err := e.archive.RecordCompletion(ctx, id, completedAt); err != nil {
			zap.L().Warn("archive record failed", zap.String("transaction", id), zap.Error(err))
		}
	} else {
		zap.L().Info("order completion reverted", zap.String("transaction", id))
		if err := e.archive.ClearCompletion(ctx, id); err != nil {
			zap.L().Warn("archive clear failed", zap.String("transaction", id), zap.Error(err))
		}
	}
}

// trackAll runs the tracker over every cached and manual order. Called
// after each merge so feed-driven flag changes land in the log too.
func (e *Engine) trackAll(ctx context.Context) {
	for _, order := range e.cache.Snapshot() {
		e.Track(ctx, order, "")
	}
	for _, order := range e.manual.Snapshot() {
		e.Track(ctx, order, "")
	}
}

// RemoveCompletion drops the log entry and archive row for an
// identifier, after the order it tracked is gone.
func (e *Engine) RemoveCompletion(ctx context.Context, identifier string) {
	if identifier == "" {
		return
	}
	removed, err := e.log.Remove(identifier)
	if err != nil {
		zap.L().Warn("completion log remove failed", zap.String("transaction", identifier), zap.Error(err))
	}
	if removed {
		if err := e.archive.ClearCompletion(ctx, identifier); err != nil {
			zap.L().Warn("archive clear failed", zap.String("transaction", identifier), zap.Error(err))
		}
	}
}

// Reconcile is the level-triggered corrective pass: it forces every
// stored is_complete flag to match the live flags of the current order
// set, without emitting history entries. Guards against drift from
// writes that bypassed the tracker, and against a crash between a cache
// save and a log save.
func (e *Engine) Reconcile(ctx context.Context) int {
	live := make(map[string]bool)
	for _, order := range e.cache.Snapshot() {
		if id := order.Identifier(""); id != "" {
			live[id] = order.Complete()
		}
	}
	for _, order := range e.manual.Snapshot() {
		if id := order.Identifier(""); id != "" {
			live[id] = order.Complete()
		}
	}

	corrected := 0
	var reverted []string
	_, err := e.log.Mutate(func(entries map[string]*model.CompletionEntry) bool {
		for id, entry := range entries {
			complete, tracked := live[id]
			if !tracked {
				continue
			}
			if entry.IsComplete == complete {
				continue
			}
			if complete {
				// Corrected upward without a transition record: the
				// real completion time is unknown, so completed_at
				// stays empty and consumers fall back to the order's
				// own date.
				entry.IsComplete = true
			} else {
				entry.ClearCompletion()
				reverted = append(reverted, id)
			}
			corrected++
		}
		return corrected > 0
	})
	for _, id := range reverted {
		if err := e.archive.ClearCompletion(ctx, id); err != nil {
			zap.L().Warn("archive clear failed", zap.String("transaction", id), zap.Error(err))
		}
	}
	if err != nil {
		zap.L().Warn("completion log reconcile persist failed", zap.Error(err))
	}
	if corrected > 0 {
		zap.L().Info("completion log reconciled", zap.Int("corrected", corrected))
	}
	return corrected
}
