package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteArchive implements EventArchive using modernc.org/sqlite.
type SQLiteArchive struct {
	db *sql.DB
}

// NewSQLiteArchive opens a SQLite database at the given path and
// configures WAL mode.
func NewSQLiteArchive(dsn string) (*SQLiteArchive, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite archive: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite archive: exec %s", pragma)
		}
	}
	return &SQLiteArchive{db: db}, nil
}

const sqliteArchiveMigration = `
CREATE TABLE IF NOT EXISTS order_completion_events (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	"transaction"   TEXT NOT NULL UNIQUE,
	completion_date DATE NOT NULL,
	recorded_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_completion_events_date
	ON order_completion_events(completion_date);
`

func (a *SQLiteArchive) Migrate(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, sqliteArchiveMigration)
	return eris.Wrap(err, "sqlite archive: migrate")
}

func (a *SQLiteArchive) RecordCompletion(ctx context.Context, transaction string, completedAt time.Time) error {
	completedAt = completedAt.UTC()
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO order_completion_events ("transaction", completion_date, recorded_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT("transaction") DO UPDATE SET
			completion_date = excluded.completion_date,
			recorded_at     = excluded.recorded_at`,
		transaction, completedAt.Format("2006-01-02"), completedAt,
	)
	return eris.Wrapf(err, "sqlite archive: record %s", transaction)
}

func (a *SQLiteArchive) ClearCompletion(ctx context.Context, transaction string) error {
	_, err := a.db.ExecContext(ctx,
		`DELETE FROM order_completion_events WHERE "transaction" = ?`, transaction)
	return eris.Wrapf(err, "sqlite archive: clear %s", transaction)
}

func (a *SQLiteArchive) Close() error {
	return a.db.Close()
}
