package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/atelier-ops/orderdesk/internal/model"
)

// editFieldMapping translates frontend display names to the canonical
// sheet column written on cached orders.
var editFieldMapping = map[string]string{
	"Produce": "Kesildi",
	"Ready":   "Hazır",
	"Shipped": "Gönderildi",
	"Note":    "importantnote",
}

var stageEditFields = map[string]bool{
	"Produce": true, "Ready": true, "Shipped": true,
	"Kesildi": true, "Hazır": true, "Gönderildi": true,
}

var produceEditFields = map[string]bool{"Produce": true, "Kesildi": true}

// EditOrder applies field updates to the order with the given
// transaction, looking in the cache first and the manual store second.
// Checkbox fields are normalized to flag literals and mirrored onto
// both their aliases. Clearing a previously-true produce flag requires
// the privileged flag. Returns the canonical names of the updated
// fields.
func (e *Engine) EditOrder(ctx context.Context, transaction string, updates model.Order, privileged bool) ([]string, error) {
	var updatedFields []string
	var tracked model.Order
	var editErr error

	// Fields apply in lexical order so a payload naming both aliases of
	// one field resolves the same way every time.
	fields := make([]string, 0, len(updates))
	for field := range updates {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	apply := func(order model.Order, canonicalTarget bool) bool {
		for _, field := range fields {
			value := updates[field]
			canonical, mapped := editFieldMapping[field]
			if !mapped {
				canonical = field
			}
			target := field
			if canonicalTarget {
				target = canonical
			}

			if stageEditFields[field] || stageEditFields[canonical] {
				requested := model.ParseFlag(value)
				if (produceEditFields[field] || produceEditFields[canonical]) && !privileged {
					current := order.Flag("Produce", "Kesildi")
					if current && !requested {
						editErr = ErrPrivilege
						return false
					}
				}
				order[target] = model.FlagString(requested)
			} else {
				order[target] = stringValue(value)
			}

			// Mirror onto the display alias so both naming
			// conventions stay consistent.
			switch target {
			case "Kesildi", "Produce":
				order["Produce"] = order[target]
			case "Hazır", "Ready":
				order["Ready"] = order[target]
			case "Gönderildi", "Shipped":
				order["Shipped"] = order[target]
			case "importantnote", "Note":
				order["Note"] = order[target]
			}
			updatedFields = append(updatedFields, canonical)
		}
		return true
	}

	matchesTransaction := func(order model.Order) bool {
		id := order.GetString("transaction")
		if id == "" {
			id = order.GetString("Transaction ID")
		}
		return id != "" && id == transaction
	}

	foundInCache := false
	_, err := e.cache.Mutate(func(orders []model.Order) ([]model.Order, bool) {
		for i, order := range orders {
			if !matchesTransaction(order) {
				continue
			}
			foundInCache = true
			next := order.Clone()
			if !apply(next, true) {
				return orders, false
			}
			orders[i] = next
			tracked = next
			return orders, true
		}
		return orders, false
	})
	if err != nil {
		return nil, err
	}
	if editErr != nil {
		return nil, editErr
	}

	if !foundInCache {
		foundManual := false
		_, err := e.manual.Mutate(func(orders []model.Order) ([]model.Order, bool) {
			for i, order := range orders {
				if order.GetString("transaction") != transaction {
					continue
				}
				foundManual = true
				next := order.Clone()
				if !apply(next, false) {
					return orders, false
				}
				next["_sortKey"] = next.SortKey(e.now())
				orders[i] = next
				tracked = next
				return orders, true
			}
			return orders, false
		})
		if err != nil {
			return nil, err
		}
		if editErr != nil {
			return nil, editErr
		}
		if !foundManual {
			return nil, ErrNotFound
		}
	}

	e.Track(ctx, tracked, transaction)
	return updatedFields, nil
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
