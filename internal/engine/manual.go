package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/atelier-ops/orderdesk/internal/model"
	"github.com/atelier-ops/orderdesk/internal/store"
)

// CreateManual builds a manual order from the payload, normalized
// against the fixed default template, and stores it. A missing
// transaction gets a generated MANUAL- identifier derived from the
// manual id. Replaces any existing record with the same manual id.
func (e *Engine) CreateManual(ctx context.Context, payload model.Order) (model.Order, error) {
	manualID := payload.GetString("__manualId")
	if manualID == "" {
		manualID = uuid.New().String()
	}

	order := model.DefaultManualOrder()
	for _, field := range model.ManualOrderFields {
		if v, ok := payload[field]; ok && v != nil {
			order[field] = v
		}
	}
	if order.GetString("transaction") == "" {
		order["transaction"] = store.ManualTransactionFor(manualID)
	}
	order["__manualId"] = manualID
	if order.GetString("created_at") == "" {
		order["created_at"] = e.now().UTC().Format("2006-01-02T15:04:05")
	}
	order["isManual"] = true
	if order.GetString("_sortKey") == "" {
		order["_sortKey"] = order.SortKey(e.now())
	}

	_, err := e.manual.Mutate(func(orders []model.Order) ([]model.Order, bool) {
		next := make([]model.Order, 0, len(orders)+1)
		for _, existing := range orders {
			if existing.GetString("__manualId") != manualID {
				next = append(next, existing)
			}
		}
		next = append(next, order)
		return next, true
	})
	if err != nil {
		return nil, err
	}

	e.Track(ctx, order, order.GetString("transaction"))
	return order.Clone(), nil
}

// UpdateManual applies the supplied fields to an existing manual order.
// Fields outside the fixed manual schema are ignored; stage fields are
// normalized to flag literals. Recomputes the sort key and, when the
// update changed the record's identity, drops the completion entry
// filed under the old identifier.
func (e *Engine) UpdateManual(ctx context.Context, manualID string, updates model.Order) (model.Order, error) {
	var updated model.Order
	var previousID string

	_, err := e.manual.Mutate(func(orders []model.Order) ([]model.Order, bool) {
		for i, order := range orders {
			if order.GetString("__manualId") != manualID {
				continue
			}
			previousID = order.Identifier("")

			next := order.Clone()
			for _, field := range model.ManualOrderFields {
				v, ok := updates[field]
				if !ok {
					continue
				}
				if model.ManualStageFields[field] {
					next[field] = model.FlagString(model.ParseFlag(v))
				} else if v == nil {
					next[field] = ""
				} else {
					next[field] = v
				}
			}
			next["_sortKey"] = next.SortKey(e.now())
			orders[i] = next
			updated = next
			return orders, true
		}
		return orders, false
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrNotFound
	}

	e.Track(ctx, updated, updated.GetString("transaction"))
	if newID := updated.Identifier(""); previousID != "" && newID != "" && previousID != newID {
		e.RemoveCompletion(ctx, previousID)
	}
	return updated.Clone(), nil
}

// DeleteManual removes a manual order and its completion log entries.
// Privileged callers only.
func (e *Engine) DeleteManual(ctx context.Context, manualID string, privileged bool) error {
	if !privileged {
		return ErrPrivilege
	}

	var removed model.Order
	_, err := e.manual.Mutate(func(orders []model.Order) ([]model.Order, bool) {
		next := make([]model.Order, 0, len(orders))
		for _, order := range orders {
			if removed == nil && order.GetString("__manualId") == manualID {
				removed = order
				continue
			}
			next = append(next, order)
		}
		return next, removed != nil
	})
	if err != nil {
		return err
	}
	if removed == nil {
		return ErrNotFound
	}

	// Drop the log entry under the record's resolved identity and, in
	// case older entries were filed by manual id, that key too.
	e.RemoveCompletion(ctx, removed.Identifier(""))
	e.RemoveCompletion(ctx, manualID)
	return nil
}
