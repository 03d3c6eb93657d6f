// Package model defines the flat order record shared by the cache, the
// manual store, the merger, and the view builder, plus the identity and
// flag conventions every component must agree on.
package model

import (
	"fmt"
	"strings"
)

// Flag string literals used in the persisted stores. The on-disk contract
// keeps stage flags as strings, not booleans.
const (
	FlagTrue  = "TRUE"
	FlagFalse = "FALSE"
)

// Order is one flat, column-keyed order record. Cached orders carry
// whatever columns the sheet export produced; manual orders carry the
// fixed field set in ManualOrderFields. Values are strings for sheet
// columns, plus the occasional bool (isManual) on manual records.
type Order map[string]any

// identifierKeys is the single ordered list of lookup keys used to
// resolve an order's canonical identifier. Never duplicate this inline.
var identifierKeys = []string{
	"transaction",
	"Transaction ID",
	"Transaction",
	"order_id",
	"Order ID",
	"__manualId",
	"id",
	"ID",
}

// Identifier resolves the canonical identity of an order. The explicit
// hint wins, then each candidate key in priority order. Returns "" when
// nothing resolves; such rows cannot be deduplicated or edited later.
func (o Order) Identifier(hint string) string {
	if hint != "" {
		return hint
	}
	if o == nil {
		return ""
	}
	for _, key := range identifierKeys {
		if s := o.GetString(key); s != "" {
			return s
		}
	}
	return ""
}

// GetString returns the value under key coerced to a string, or "" when
// absent or nil.
func (o Order) GetString(key string) string {
	if o == nil {
		return ""
	}
	v, ok := o[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return FlagTrue
		}
		return FlagFalse
	case float64:
		// JSON numbers decode as float64; render integers without a dot.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// ParseFlag converts a loosely-typed checkbox value to a real bool.
// Accepts bools, 1/0 and the usual truthy strings.
func ParseFlag(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case int:
		return t == 1
	case float64:
		return t == 1
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y", "t":
			return true
		}
	}
	return false
}

// FlagString renders a bool in the persisted "TRUE"/"FALSE" form.
func FlagString(b bool) string {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

// Flag reads a stage flag under primary, falling back to fallback when
// primary is absent or empty.
func (o Order) Flag(primary, fallback string) bool {
	if o == nil {
		return false
	}
	if v, ok := o[primary]; ok && v != nil && v != "" {
		return ParseFlag(v)
	}
	return ParseFlag(o[fallback])
}

// StageFlags returns the three fulfillment stage flags (produce, ready,
// shipped), reading the display name first and the canonical sheet
// column as fallback.
func (o Order) StageFlags() (produce, ready, shipped bool) {
	produce = o.Flag("Produce", "Kesildi")
	ready = o.Flag("Ready", "Hazır")
	shipped = o.Flag("Shipped", "Gönderildi")
	return produce, ready, shipped
}

// Complete reports whether all three stage flags are set.
func (o Order) Complete() bool {
	produce, ready, shipped := o.StageFlags()
	return produce && ready && shipped
}

// Clone returns a shallow copy of the order. Values are strings and
// bools, so a shallow copy is a safe snapshot.
func (o Order) Clone() Order {
	if o == nil {
		return nil
	}
	out := make(Order, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// EditableFieldPair maps a frontend display name to its canonical sheet
// column name for one user-owned field.
type EditableFieldPair struct {
	Display   string
	Canonical string
}

// EditableFieldPairs is the fixed set of user-owned fields the merge
// process must never clobber: the three stage checkboxes and the note.
var EditableFieldPairs = []EditableFieldPair{
	{Display: "Produce", Canonical: "Kesildi"},
	{Display: "Ready", Canonical: "Hazır"},
	{Display: "Shipped", Canonical: "Gönderildi"},
	{Display: "Note", Canonical: "importantnote"},
}

// EditableFieldNames returns every display and canonical editable field
// name, for excluding user-owned fields from change detection.
func EditableFieldNames() map[string]bool {
	names := make(map[string]bool, len(EditableFieldPairs)*2)
	for _, pair := range EditableFieldPairs {
		names[pair.Display] = true
		names[pair.Canonical] = true
	}
	return names
}
