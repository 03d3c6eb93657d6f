package model

import (
	"strings"
	"time"
)

// orderDateLayouts is the documented format-priority order for sheet
// dates. ISO-8601 variants are tried first, then the day-first layouts
// the sheet has historically used, then the US layout.
var orderDateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02.01.2006",
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
}

// ParseOrderDate is the one date-guessing function in the system. It
// tries each known layout in priority order and reports whether any
// matched. Callers must not re-implement this locally.
func ParseOrderDate(value string) (time.Time, bool) {
	normalized := strings.TrimSpace(value)
	if normalized == "" {
		return time.Time{}, false
	}
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// sortKeyCandidates are the fields consulted, in order, when deriving an
// order's sort key. "Data" is the raw sheet column before the view
// rename; the rest are post-transform and manual-order fields.
var sortKeyCandidates = []string{"tarih", "tarihh", "Data", "created_at", "_sortKey"}

// SortKey derives the reverse-chronological sort key for an order from
// the best parseable date field, falling back to now when nothing
// parses. Keys are ISO strings so they compare lexically.
func (o Order) SortKey(now time.Time) string {
	for _, key := range sortKeyCandidates {
		if t, ok := ParseOrderDate(o.GetString(key)); ok {
			return t.Format("2006-01-02T15:04:05")
		}
	}
	return now.UTC().Format("2006-01-02T15:04:05")
}

// OrderDate parses the best available date field for trend bucketing.
// Unlike SortKey there is no fallback: a dateless order simply has no
// bucket.
func (o Order) OrderDate() (time.Time, bool) {
	for _, key := range sortKeyCandidates {
		if t, ok := ParseOrderDate(o.GetString(key)); ok {
			return t, true
		}
	}
	return time.Time{}, false
}
