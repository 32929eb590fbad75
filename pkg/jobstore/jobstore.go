// Package jobstore is the Postgres-backed persistence.Store implementation
// (spec.md §4.C11, §6): a single `job_blobs` table, migrated with
// golang-migrate on startup. Grounded on pkg/database/client.go's
// NewClient/runMigrations (embedded migration FS, postgres driver,
// iofs source) — generalized from the teacher's ent-driven relational
// schema down to the one table this sidecar's narrow put/get contract
// needs, and on pkg/jackc/pgx/v5/pgxpool for the actual query path instead
// of ent's generated client, since there is no relational model here.
package jobstore

import (
	"context"
	stdsql "database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver for golang-migrate

	"github.com/nellia/prospectord/pkg/persistence"
)

//go:embed migrations
var migrationsFS embed.FS

// Store is a Postgres-backed persistence.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn, runs pending migrations, and returns a ready Store.
// The caller must call Close when done.
func New(ctx context.Context, dsn string) (*Store, error) {
	if err := migrateUp(dsn); err != nil {
		return nil, fmt.Errorf("jobstore: migrate: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("jobstore: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("jobstore: ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports whether the underlying connection pool can reach Postgres,
// satisfying pkg/api.Pinger for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Put upserts blob under key.
func (s *Store) Put(ctx context.Context, key string, blob []byte) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO job_blobs (job_key, blob, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (job_key) DO UPDATE SET blob = EXCLUDED.blob, updated_at = now()`,
		key, blob)
	if err != nil {
		return fmt.Errorf("jobstore: put %q: %w", key, err)
	}
	return nil
}

// Get returns the blob stored under key, or persistence.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var blob []byte
	err := s.pool.QueryRow(ctx, `SELECT blob FROM job_blobs WHERE job_key = $1`, key).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, persistence.ErrNotFound
		}
		return nil, fmt.Errorf("jobstore: get %q: %w", key, err)
	}
	return blob, nil
}

// DeleteOlderThan removes every blob last written before the cutoff,
// returning the number of rows removed. Used by pkg/cleanup's retention
// loop so completed job blobs don't accumulate forever in Postgres.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM job_blobs WHERE updated_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("jobstore: delete older than %s: %w", cutoff, err)
	}
	return tag.RowsAffected(), nil
}

// migrateUp applies every pending migration against dsn using a short-lived
// database/sql connection (golang-migrate's postgres driver requires one;
// pgxpool is used for the store's actual query path).
func migrateUp(dsn string) error {
	db, err := stdsql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("postgres driver: %w", err)
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	defer sourceDriver.Close()

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "job_blobs", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply: %w", err)
	}
	return nil
}

var _ persistence.Store = (*Store)(nil)
