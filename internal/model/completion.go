package model

import "time"

// CompletionHistoryCap bounds the per-identifier transition history.
// Oldest entries are evicted first.
const CompletionHistoryCap = 50

// CompletionEntry is the append-only completion record for one canonical
// identifier. CompletedAt is the most recent transition into complete
// and is cleared on reversal; History survives reversals.
type CompletionEntry struct {
	IsComplete  bool        `json:"is_complete"`
	CompletedAt *time.Time  `json:"completed_at"`
	History     []time.Time `json:"history"`
}

// RecordCompletion appends a transition-into-complete timestamp,
// trimming history to the cap.
func (e *CompletionEntry) RecordCompletion(at time.Time) {
	e.IsComplete = true
	at = at.UTC()
	e.CompletedAt = &at
	e.History = append(e.History, at)
	if len(e.History) > CompletionHistoryCap {
		e.History = e.History[len(e.History)-CompletionHistoryCap:]
	}
}

// ClearCompletion records a transition back to incomplete. The history
// is kept; a reversal is not an undo.
func (e *CompletionEntry) ClearCompletion() {
	e.IsComplete = false
	e.CompletedAt = nil
}

// CompletionDate returns the completion date in the given zone, if the
// entry has a usable completed_at timestamp.
func (e *CompletionEntry) CompletionDate(loc *time.Location) (time.Time, bool) {
	if e == nil || e.CompletedAt == nil {
		return time.Time{}, false
	}
	t := e.CompletedAt.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), true
}
