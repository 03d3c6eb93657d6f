package store

import (
	"context"
	"time"
)

// EventArchive mirrors completion transitions into a SQL table so the
// history survives JSON-file resets and can be queried externally. The
// tracker writes to it best-effort; archive failures never block a
// merge.
type EventArchive interface {
	// RecordCompletion upserts the completion row for the identifier.
	RecordCompletion(ctx context.Context, transaction string, completedAt time.Time) error
	// ClearCompletion removes the completion row for the identifier.
	ClearCompletion(ctx context.Context, transaction string) error
	// Migrate creates the schema if it does not exist.
	Migrate(ctx context.Context) error
	Close() error
}

// NoopArchive is the archive used when no SQL backend is configured.
type NoopArchive struct{}

func (NoopArchive) RecordCompletion(context.Context, string, time.Time) error { return nil }
func (NoopArchive) ClearCompletion(context.Context, string) error             { return nil }
func (NoopArchive) Migrate(context.Context) error                             { return nil }
func (NoopArchive) Close() error                                              { return nil }
