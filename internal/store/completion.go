package store

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/atelier-ops/orderdesk/internal/model"
)

// CompletionLog persists the append-only completion history, a JSON map
// from canonical identifier to its completion entry.
type CompletionLog struct {
	mu      sync.Mutex
	path    string
	entries map[string]*model.CompletionEntry
}

// NewCompletionLog creates a completion log store backed by the given
// file.
func NewCompletionLog(path string) *CompletionLog {
	return &CompletionLog{path: path, entries: make(map[string]*model.CompletionEntry)}
}

// Load reads the persisted log. A corrupt file resets to empty; the
// reconciliation pass rebuilds the is_complete flags from live state.
func (l *CompletionLog) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries := make(map[string]*model.CompletionEntry)
	found, err := readJSONFile(l.path, &entries)
	if err != nil {
		zap.L().Warn("completion log load failed, starting empty", zap.Error(err))
		l.entries = make(map[string]*model.CompletionEntry)
		return nil
	}
	if !found {
		l.entries = make(map[string]*model.CompletionEntry)
		return nil
	}
	l.entries = entries
	zap.L().Debug("loaded completion log", zap.Int("identifiers", len(entries)))
	return nil
}

// Get returns a copy of the entry for the identifier, or nil.
func (l *CompletionLog) Get(identifier string) *model.CompletionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[identifier]
	if !ok {
		return nil
	}
	return copyEntry(entry)
}

// Snapshot returns a deep copy of the whole log.
func (l *CompletionLog) Snapshot() map[string]model.CompletionEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]model.CompletionEntry, len(l.entries))
	for id, entry := range l.entries {
		out[id] = *copyEntry(entry)
	}
	return out
}

// Len returns the number of tracked identifiers.
func (l *CompletionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Mutate applies fn to the log under the store lock and persists when
// fn reports a change. The tracker is the only caller that writes.
func (l *CompletionLog) Mutate(fn func(entries map[string]*model.CompletionEntry) bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !fn(l.entries) {
		return false, nil
	}
	if err := writeJSONFile(l.path, l.entries); err != nil {
		return true, eris.Wrap(err, "completion log: persist")
	}
	return true, nil
}

// Remove drops the entry for the identifier, if present.
func (l *CompletionLog) Remove(identifier string) (bool, error) {
	if identifier == "" {
		return false, nil
	}
	return l.Mutate(func(entries map[string]*model.CompletionEntry) bool {
		if _, ok := entries[identifier]; !ok {
			return false
		}
		delete(entries, identifier)
		return true
	})
}

func copyEntry(entry *model.CompletionEntry) *model.CompletionEntry {
	out := &model.CompletionEntry{IsComplete: entry.IsComplete}
	if entry.CompletedAt != nil {
		at := *entry.CompletedAt
		out.CompletedAt = &at
	}
	if len(entry.History) > 0 {
		out.History = make([]time.Time, len(entry.History))
		copy(out.History, entry.History)
	}
	return out
}
