// Package postgres persists the plant collection and session user as JSONB buckets in Postgres.
//
// Each persisted key is one row of the state table; the plants bucket carries
// the revision used for compare-and-swap writes.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/store"
)

const driverName = "pgx"

var sqlOpen = sql.Open

// Store is a Postgres-backed store.Store.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Pinger = (*Store)(nil)
)

// Open connects to dsn and ensures the state table exists.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureStateTable(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if logger != nil {
		logger.Info("Postgres store ready")
	}
	return &Store{db: db, logger: logger}, nil
}

func ensureStateTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS state (
		bucket   TEXT PRIMARY KEY,
		payload  JSONB NOT NULL,
		revision BIGINT NOT NULL DEFAULT 0
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure state table: %w", err)
	}
	return nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close implements store.Store.
func (s *Store) Close() error { return s.db.Close() }

// Ping implements store.Pinger.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// LoadPlants implements store.Store.
func (s *Store) LoadPlants(ctx context.Context) (*store.PlantSnapshot, error) {
	var (
		payload  []byte
		revision int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, revision FROM state WHERE bucket = $1`, store.KeyPlants,
	).Scan(&payload, &revision)
	if errors.Is(err, sql.ErrNoRows) {
		return &store.PlantSnapshot{Plants: []domain.Plant{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select plants: %w", err)
	}
	plants, err := store.DecodePlants(payload)
	if err != nil {
		return nil, err
	}
	return &store.PlantSnapshot{Plants: plants, Revision: uint64(revision)}, nil
}

// SavePlants implements store.Store. The first write inserts the bucket at
// revision 1; later writes update it only while the revision still matches.
func (s *Store) SavePlants(ctx context.Context, plants []domain.Plant, expected uint64) (uint64, error) {
	payload, err := store.EncodePlants(plants)
	if err != nil {
		return 0, fmt.Errorf("encode plants: %w", err)
	}

	var result sql.Result
	if expected == 0 {
		result, err = s.db.ExecContext(ctx,
			`INSERT INTO state (bucket, payload, revision) VALUES ($1, $2, 1)
			 ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload, revision = 1
			 WHERE state.revision = 0`,
			store.KeyPlants, payload)
	} else {
		result, err = s.db.ExecContext(ctx,
			`UPDATE state SET payload = $2, revision = revision + 1
			 WHERE bucket = $1 AND revision = $3`,
			store.KeyPlants, payload, int64(expected))
	}
	if err != nil {
		return 0, fmt.Errorf("write plants: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, store.ErrRevisionConflict
	}
	return expected + 1, nil
}

// LoadSession implements store.Store.
func (s *Store) LoadSession(ctx context.Context) (*domain.User, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM state WHERE bucket = $1`, store.KeySession,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return store.DecodeSession(payload)
}

// SaveSession implements store.Store.
func (s *Store) SaveSession(ctx context.Context, user *domain.User) error {
	if user == nil {
		return s.ClearSession(ctx)
	}
	payload, err := store.EncodeSession(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO state (bucket, payload) VALUES ($1, $2)
		 ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload`,
		store.KeySession, payload)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// ClearSession implements store.Store.
func (s *Store) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM state WHERE bucket = $1`, store.KeySession); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
