package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atelier-ops/orderdesk/internal/model"
)

// fetchRows pulls the feed, treats an empty result as a failure, and
// applies the configured row cap. A shrinking feed is not an error;
// only a feed that produced nothing at all is refused.
func (e *Engine) fetchRows(ctx context.Context) ([]model.Order, error) {
	rows, err := e.fetcher.Fetch(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "engine: fetch")
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	if e.maxRows > 0 && len(rows) > e.maxRows {
		zap.L().Debug("limiting fetched rows", zap.Int("fetched", len(rows)), zap.Int("limit", e.maxRows))
		rows = rows[:e.maxRows]
	}
	return rows, nil
}

// RefreshFull replaces the cache with the fetched batch in source
// order, deduplicated by first occurrence of an identifier, preserving
// user edits on matching rows. Cached rows absent from the fetch are
// appended at the end: losing a row the user edited is worse than
// staleness. Returns the resulting cache size.
func (e *Engine) RefreshFull(ctx context.Context) (int, error) {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	rows, err := e.fetchRows(ctx)
	if err != nil {
		return 0, err
	}

	var size int
	_, err = e.cache.Mutate(func(cached []model.Order) ([]model.Order, bool) {
		existing := indexByIdentifier(cached)

		next := make([]model.Order, 0, len(rows))
		seen := make(map[string]bool, len(rows))
		for _, row := range rows {
			id := row.Identifier("")
			if id == "" {
				// Cannot be deduplicated or edited later; kept in
				// source order only.
				next = append(next, row)
				continue
			}
			if seen[id] {
				continue
			}
			seen[id] = true
			if prev, ok := existing[id]; ok {
				preserveEditable(row, prev)
			}
			next = append(next, row)
		}

		for _, prev := range cached {
			id := prev.Identifier("")
			if id != "" && !seen[id] {
				next = append(next, prev)
			}
		}

		size = len(next)
		return next, true
	})
	if err != nil {
		return 0, err
	}

	e.trackAll(ctx)
	e.markSync(&e.lastFull)
	zap.L().Info("full refresh complete", zap.Int("fetched", len(rows)), zap.Int("cached", size))
	return size, nil
}

// RefreshIncremental appends strictly new rows and replaces, in place,
// cached rows whose non-editable fields changed in the feed. Rows with
// no detected change are left untouched. Reports whether anything
// changed, for the caller's scheduling.
func (e *Engine) RefreshIncremental(ctx context.Context) (bool, error) {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	rows, err := e.fetchRows(ctx)
	if err != nil {
		return false, err
	}

	editable := model.EditableFieldNames()
	added, updated := 0, 0
	changed, err := e.cache.Mutate(func(cached []model.Order) ([]model.Order, bool) {
		existingIDs := make(map[string]bool, len(cached))
		for _, prev := range cached {
			if id := prev.Identifier(""); id != "" {
				existingIDs[id] = true
			}
		}

		fetched := indexByIdentifier(rows)
		next := cached

		appended := make(map[string]bool)
		for _, row := range rows {
			id := row.Identifier("")
			if id == "" || existingIDs[id] || appended[id] {
				continue
			}
			appended[id] = true
			next = append(next, row)
			added++
			zap.L().Debug("incremental: new order", zap.String("transaction", id))
		}

		for i, prev := range next[:len(next)-added] {
			id := prev.Identifier("")
			if id == "" {
				continue
			}
			row, ok := fetched[id]
			if !ok {
				continue
			}
			if !nonEditableChanged(prev, row, editable) {
				continue
			}
			replacement := row.Clone()
			preserveEditable(replacement, prev)
			next[i] = replacement
			updated++
			zap.L().Debug("incremental: updated order", zap.String("transaction", id))
		}

		return next, added > 0 || updated > 0
	})
	if err != nil {
		return changed, err
	}
	if !changed {
		zap.L().Debug("incremental refresh: no changes")
		return false, nil
	}

	e.trackAll(ctx)
	e.markSync(&e.lastIncremental)
	zap.L().Info("incremental refresh complete", zap.Int("added", added), zap.Int("updated", updated))
	return true, nil
}

// SyncLatest is the cheap quick sync: it takes the N most recent
// fetched rows by parsed order date, refreshes those in the cache with
// edits preserved, and keeps every cached row outside that subset
// untouched, so older history is never discarded. Returns how many feed
// rows were applied.
func (e *Engine) SyncLatest(ctx context.Context) (int, error) {
	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	rows, err := e.fetchRows(ctx)
	if err != nil {
		return 0, err
	}

	latest := latestByDate(rows, e.quickCount)

	_, err = e.cache.Mutate(func(cached []model.Order) ([]model.Order, bool) {
		existing := indexByIdentifier(cached)

		next := make([]model.Order, 0, len(cached)+len(latest))
		processed := make(map[string]bool, len(latest))
		for _, row := range latest {
			id := row.Identifier("")
			if id == "" || processed[id] {
				continue
			}
			processed[id] = true
			if prev, ok := existing[id]; ok {
				preserveEditable(row, prev)
			}
			next = append(next, row)
		}

		for _, prev := range cached {
			id := prev.Identifier("")
			if id != "" && !processed[id] {
				next = append(next, prev)
			}
		}

		return next, true
	})
	if err != nil {
		return 0, err
	}

	e.trackAll(ctx)
	e.markSync(&e.lastQuick)
	zap.L().Info("quick sync complete", zap.Int("applied", len(latest)))
	return len(latest), nil
}

// Reset empties the cache then runs a full refresh, so the next view is
// rebuilt purely from the feed plus whatever the fetch preserved.
func (e *Engine) Reset(ctx context.Context) (int, error) {
	if err := e.cache.Reset(); err != nil {
		return 0, err
	}
	zap.L().Info("order cache reset")
	return e.RefreshFull(ctx)
}

// indexByIdentifier maps orders by canonical identifier, first
// occurrence winning, skipping identifier-less rows.
func indexByIdentifier(orders []model.Order) map[string]model.Order {
	out := make(map[string]model.Order, len(orders))
	for _, o := range orders {
		id := o.Identifier("")
		if id == "" {
			continue
		}
		if _, ok := out[id]; !ok {
			out[id] = o
		}
	}
	return out
}

// nonEditableChanged reports whether any field of row outside the
// editable set differs from prev. Editable fields belong to the user
// and never count as feed changes.
func nonEditableChanged(prev, row model.Order, editable map[string]bool) bool {
	for key := range row {
		if editable[key] {
			continue
		}
		if prev.GetString(key) != row.GetString(key) {
			return true
		}
	}
	return false
}

// latestByDate sorts rows by parsed order date descending, stable, and
// returns the first n. Rows whose date does not parse sort as the
// oldest.
func latestByDate(rows []model.Order, n int) []model.Order {
	type datedRow struct {
		row  model.Order
		date time.Time
	}
	dated := make([]datedRow, len(rows))
	for i, row := range rows {
		dated[i].row = row
		if t, ok := row.OrderDate(); ok {
			dated[i].date = t
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].date.After(dated[j].date)
	})
	if len(dated) > n {
		dated = dated[:n]
	}
	out := make([]model.Order, len(dated))
	for i, d := range dated {
		out[i] = d.row
	}
	return out
}
