package store

import (
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Sequence persists the user-curated display order as a JSON array of
// identifier strings. The engine passes it through untouched.
type Sequence struct {
	mu   sync.Mutex
	path string
	ids  []string
}

// NewSequence creates a sequence store backed by the given file.
func NewSequence(path string) *Sequence {
	return &Sequence{path: path}
}

// Load reads the persisted sequence, dropping empty entries.
func (s *Sequence) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw []string
	found, err := readJSONFile(s.path, &raw)
	if err != nil {
		zap.L().Warn("sequence load failed, starting empty", zap.Error(err))
		s.ids = nil
		return nil
	}
	if !found {
		s.ids = nil
		return nil
	}

	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		if id != "" {
			ids = append(ids, id)
		}
	}
	s.ids = ids
	return nil
}

// Get returns a copy of the sequence.
func (s *Sequence) Get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Set replaces the sequence, dropping empty entries, and persists it.
func (s *Sequence) Set(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			next = append(next, id)
		}
	}
	s.ids = next
	if err := writeJSONFile(s.path, next); err != nil {
		return eris.Wrap(err, "sequence: persist")
	}
	return nil
}
