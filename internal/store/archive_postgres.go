package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// pgPool is the subset of pgxpool.Pool the archive uses, so tests can
// substitute pgxmock.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresArchive implements EventArchive using pgxpool.
type PostgresArchive struct {
	pool pgPool
}

// NewPostgresArchive creates a PostgresArchive with a connection pool.
func NewPostgresArchive(ctx context.Context, connString string) (*PostgresArchive, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres archive: parse config")
	}
	pgxCfg.MaxConns = 4
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres archive: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres archive: ping")
	}
	return &PostgresArchive{pool: pool}, nil
}

// NewPostgresArchiveWithPool wraps an existing pool. Used by tests.
func NewPostgresArchiveWithPool(pool pgPool) *PostgresArchive {
	return &PostgresArchive{pool: pool}
}

const postgresArchiveMigration = `
CREATE TABLE IF NOT EXISTS order_completion_events (
	id              BIGSERIAL PRIMARY KEY,
	transaction_id  TEXT NOT NULL UNIQUE,
	completion_date DATE NOT NULL,
	recorded_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_completion_events_date
	ON order_completion_events(completion_date);
`

func (a *PostgresArchive) Migrate(ctx context.Context) error {
	_, err := a.pool.Exec(ctx, postgresArchiveMigration)
	return eris.Wrap(err, "postgres archive: migrate")
}

func (a *PostgresArchive) RecordCompletion(ctx context.Context, transaction string, completedAt time.Time) error {
	completedAt = completedAt.UTC()
	_, err := a.pool.Exec(ctx,
		`INSERT INTO order_completion_events (transaction_id, completion_date, recorded_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (transaction_id) DO UPDATE SET
			completion_date = EXCLUDED.completion_date,
			recorded_at     = EXCLUDED.recorded_at`,
		transaction, completedAt.Format("2006-01-02"), completedAt,
	)
	return eris.Wrapf(err, "postgres archive: record %s", transaction)
}

func (a *PostgresArchive) ClearCompletion(ctx context.Context, transaction string) error {
	_, err := a.pool.Exec(ctx,
		`DELETE FROM order_completion_events WHERE transaction_id = $1`, transaction)
	return eris.Wrapf(err, "postgres archive: clear %s", transaction)
}

func (a *PostgresArchive) Close() error {
	a.pool.Close()
	return nil
}

// OpenArchive builds the archive named by driver: "sqlite", "postgres"
// or "off". Unknown drivers fall back to the noop archive.
func OpenArchive(ctx context.Context, driver, dsn string) (EventArchive, error) {
	switch driver {
	case "sqlite":
		return NewSQLiteArchive(dsn)
	case "postgres":
		return NewPostgresArchive(ctx, dsn)
	default:
		return NoopArchive{}, nil
	}
}
