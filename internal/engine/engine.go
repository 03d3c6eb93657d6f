// Package engine implements the order reconciliation core: the three
// merge strategies against the sheet feed, the manual order lifecycle,
// the edge-triggered completion tracker, the unified view projection
// and the dashboard aggregation.
package engine

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/atelier-ops/orderdesk/internal/fetcher"
	"github.com/atelier-ops/orderdesk/internal/store"
)

// dashboardZone is the fixed regional offset used for completion-day
// bucketing. A fixed offset, not a named zone, so results do not shift
// with DST rules.
var dashboardZone = time.FixedZone("UTC+3", 3*60*60)

var (
	// ErrNotFound is returned when an edit or manual operation names an
	// order that does not exist.
	ErrNotFound = eris.New("engine: order not found")
	// ErrPrivilege is returned when a privileged mutation is attempted
	// without the privileged flag.
	ErrPrivilege = eris.New("engine: operation requires admin privileges")
	// ErrNoData is returned when the feed produced no usable rows. The
	// cache is left untouched.
	ErrNoData = eris.New("engine: fetch returned no rows")
)

// Engine owns the persisted stores and serializes the merge paths.
// Reads (view, dashboard, status) may run concurrently with a merge;
// each store guards its own load-mutate-save cycle.
type Engine struct {
	cache    *store.Cache
	manual   *store.Manual
	log      *store.CompletionLog
	sequence *store.Sequence
	fetcher  fetcher.SheetFetcher
	archive  store.EventArchive

	// syncMu serializes the three merge modes so two concurrent
	// refreshes never interleave their read-modify-write of the cache.
	syncMu sync.Mutex

	maxRows    int
	quickCount int
	now        func() time.Time

	statusMu        sync.Mutex
	lastFull        time.Time
	lastIncremental time.Time
	lastQuick       time.Time
}

// Options wires an Engine. Now is injectable for tests and defaults to
// time.Now.
type Options struct {
	Cache    *store.Cache
	Manual   *store.Manual
	Log      *store.CompletionLog
	Sequence *store.Sequence
	Fetcher  fetcher.SheetFetcher
	Archive  store.EventArchive

	// MaxRows caps how many fetched rows a merge will consider.
	// Zero means unlimited.
	MaxRows int
	// QuickCount is the N of the latest-N quick sync.
	QuickCount int

	Now func() time.Time
}

// New creates an Engine from its stores and collaborators.
func New(opts Options) *Engine {
	e := &Engine{
		cache:      opts.Cache,
		manual:     opts.Manual,
		log:        opts.Log,
		sequence:   opts.Sequence,
		fetcher:    opts.Fetcher,
		archive:    opts.Archive,
		maxRows:    opts.MaxRows,
		quickCount: opts.QuickCount,
		now:        opts.Now,
	}
	if e.archive == nil {
		e.archive = store.NoopArchive{}
	}
	if e.quickCount <= 0 {
		e.quickCount = 20
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Status is a point-in-time snapshot of engine state for the status
// endpoint and the CLI.
type Status struct {
	CachedOrders    int        `json:"cached_orders"`
	ManualOrders    int        `json:"manual_orders"`
	TrackedOrders   int        `json:"tracked_orders"`
	SequenceLength  int        `json:"sequence_length"`
	LastFull        *time.Time `json:"last_full_sync"`
	LastIncremental *time.Time `json:"last_incremental_sync"`
	LastQuick       *time.Time `json:"last_quick_sync"`
}

// Status reports store sizes and the last successful run of each merge
// mode.
func (e *Engine) Status() Status {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	return Status{
		CachedOrders:    e.cache.Len(),
		ManualOrders:    e.manual.Len(),
		TrackedOrders:   e.log.Len(),
		SequenceLength:  len(e.sequence.Get()),
		LastFull:        timePtr(e.lastFull),
		LastIncremental: timePtr(e.lastIncremental),
		LastQuick:       timePtr(e.lastQuick),
	}
}

// Sequence returns the user-curated display order. The engine treats it
// as opaque passthrough.
func (e *Engine) Sequence() []string {
	return e.sequence.Get()
}

// SetSequence replaces the user-curated display order.
func (e *Engine) SetSequence(ids []string, privileged bool) error {
	if !privileged {
		return ErrPrivilege
	}
	return e.sequence.Set(ids)
}

func (e *Engine) markSync(which *time.Time) {
	e.statusMu.Lock()
	*which = e.now().UTC()
	e.statusMu.Unlock()
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	out := t
	return &out
}
