package engine

import (
	"sort"
	"time"

	"github.com/atelier-ops/orderdesk/internal/model"
)

// BuildView projects the cached and manual orders into the flat
// frontend schema and returns one reverse-chronological list. Each call
// builds fresh maps, so callers can never mutate engine state through
// the view.
func (e *Engine) BuildView() []model.Order {
	now := e.now()

	synced := e.cache.Snapshot()
	transformed := make([]model.Order, 0, len(synced))
	for _, order := range synced {
		transformed = append(transformed, transformSynced(order, now))
	}

	manual := e.manual.Snapshot()
	for _, entry := range manual {
		if _, ok := entry["isManual"]; !ok {
			entry["isManual"] = true
		}
		if entry.GetString("_sortKey") == "" {
			key := entry.GetString("created_at")
			if key == "" {
				key = now.UTC().Format("2006-01-02T15:04:05")
			}
			entry["_sortKey"] = key
		}
	}

	// Manual orders go first so they win ties in the stable sort.
	combined := append(manual, transformed...)
	sort.SliceStable(combined, func(i, j int) bool {
		return combined[i].GetString("_sortKey") > combined[j].GetString("_sortKey")
	})
	return combined
}

// transformSynced maps one cached sheet row through the fixed rename
// table, emitting both the display and the canonical column name for
// each user-owned field so either convention is readable by consumers.
func transformSynced(o model.Order, now time.Time) model.Order {
	photo := o.GetString("photo")
	if _, ok := o["photo"]; !ok {
		photo = o.GetString("Image")
	}
	transaction := o.GetString("Transaction ID")
	if transaction == "" {
		transaction = o.GetString("transaction")
	}

	t := model.Order{
		"photo":           photo,
		"buyername":       o.GetString("Name"),
		"Produce":         checkboxString(o, "Produce", "Kesildi"),
		"Ready":           checkboxString(o, "Ready", "Hazır"),
		"Shipped":         checkboxString(o, "Shipped", "Gönderildi"),
		"Note":            noteString(o),
		"productname":     o.GetString("Product"),
		"Quantity":        o.GetString("Quantity"),
		"material":        o.GetString("Material & Size"),
		"Chain Length":    o.GetString("Chain Length"),
		"Personalization": o.GetString("Personalization"),
		"ioss":            o.GetString("IOSS Number"),
		"FullAdress":      o.GetString("FullAdress"),
		"itemprice":       o.GetString("Item Price"),
		"discount":        o.GetString("Discount"),
		"salestax":        o.GetString("Sales Tax"),
		"ordertotal":      o.GetString("Order Total"),
		"buyeremail":      o.GetString("Buyer Email"),
		"tarih":           o.GetString("Data"),
		"vatcollected":    o.GetString("VAT"),
		"vatid":           o.GetString("VAT ID"),
		"shop":            o.GetString("Shop Name"),
		"vatpaidchf":      o.GetString("VAT Paid CHF"),
		"transaction":     transaction,
		"Buyer Note":      o.GetString("Buyer Note"),
		"Expres":          o.GetString("Express"),
		"data":            o.GetString("Data"),
		"buyermessage":    o.GetString("Müşteri Mesajı"),
		"express":         o.GetString("Express"),
		"gonderimdurumu":  "pending",
		"status":          "pending",
		"Kesildi":         checkboxString(o, "Kesildi", "Produce"),
		"Hazır":           checkboxString(o, "Hazır", "Ready"),
		"Gönderildi":      checkboxString(o, "Gönderildi", "Shipped"),
		"importantnote":   noteString(o),
		"Problem":         problemString(o),
		"isManual":        false,
	}
	t["_sortKey"] = t.SortKey(now)
	return t
}

// checkboxString renders a stage flag from the primary column, falling
// back to the alias, defaulting to the persisted "FALSE" literal.
func checkboxString(o model.Order, primary, fallback string) string {
	value := o.GetString(primary)
	if value == "" {
		value = o.GetString(fallback)
	}
	if value == "" {
		return model.FlagFalse
	}
	return value
}

// noteString renders the note, preferring the display name over the
// canonical column, defaulting to empty.
func noteString(o model.Order) string {
	if value := o.GetString("Note"); value != "" {
		return value
	}
	return o.GetString("importantnote")
}

func problemString(o model.Order) string {
	if value := o.GetString("Problem"); value != "" {
		return value
	}
	return model.FlagFalse
}
