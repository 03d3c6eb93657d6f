package engine

import "github.com/atelier-ops/orderdesk/internal/model"

// preserveEditable copies the user-owned fields (stage checkboxes and
// the note) from source onto target under both the display and the
// canonical column name, preferring the canonical value when source
// carries both. Runs before a fetched row replaces a cached one so the
// feed never clobbers a user's edits.
func preserveEditable(target, source model.Order) {
	if target == nil || source == nil {
		return
	}
	for _, pair := range model.EditableFieldPairs {
		var preserved any
		if v, ok := source[pair.Canonical]; ok {
			preserved = v
		} else if v, ok := source[pair.Display]; ok {
			preserved = v
		}
		if preserved == nil {
			continue
		}
		target[pair.Display] = preserved
		target[pair.Canonical] = preserved
	}
}
