package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "order_sequence.json")

	seq := NewSequence(path)
	require.NoError(t, seq.Load())
	assert.Empty(t, seq.Get())

	require.NoError(t, seq.Set([]string{"t-2", "", "t-1"}))
	assert.Equal(t, []string{"t-2", "t-1"}, seq.Get(), "empty entries dropped")

	reloaded := NewSequence(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, []string{"t-2", "t-1"}, reloaded.Get())
}

func TestSequenceGetReturnsCopy(t *testing.T) {
	t.Parallel()

	seq := NewSequence(filepath.Join(t.TempDir(), "seq.json"))
	require.NoError(t, seq.Set([]string{"t-1"}))

	got := seq.Get()
	got[0] = "mutated"
	assert.Equal(t, []string{"t-1"}, seq.Get())
}
