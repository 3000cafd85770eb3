// Package sqlite persists plants in a relational layout: one row per plant and one per care day.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence for plants and the session user.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var (
	_ store.Store  = (*Store)(nil)
	_ store.Pinger = (*Store)(nil)
)

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// A single connection keeps the per-connection pragmas in force and
	// serializes writers the way SQLite does anyway.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("SQLite database opened successfully", "path", path)
	}
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping implements store.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LoadPlants implements store.Store.
func (s *Store) LoadPlants(ctx context.Context) (*store.PlantSnapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	snap := &store.PlantSnapshot{Plants: []domain.Plant{}}
	if err := tx.QueryRowContext(ctx, `SELECT value FROM revision WHERE id = 1`).Scan(&snap.Revision); err != nil {
		return nil, fmt.Errorf("read revision: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, user_id, name, photo, photo_blurhash, created_at
		FROM plants ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query plants: %w", err)
	}
	index := make(map[string]int)
	for rows.Next() {
		var (
			p               domain.Plant
			photo, blurHash sql.NullString
			createdAt       string
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &photo, &blurHash, &createdAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan plant: %w", err)
		}
		p.Photo = photo.String
		p.PhotoBlurHash = blurHash.String
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			rows.Close()
			return nil, store.ErrCorrupt.WithCause(fmt.Errorf("plant %s created_at: %w", p.ID, err))
		}
		p.Normalize()
		index[p.ID] = len(snap.Plants)
		snap.Plants = append(snap.Plants, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := loadCareDates(ctx, tx, snap.Plants, index); err != nil {
		return nil, err
	}
	return snap, nil
}

func loadCareDates(ctx context.Context, tx *sql.Tx, plants []domain.Plant, index map[string]int) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT plant_id, care_type, care_date
		FROM care_dates ORDER BY plant_id, care_type, position`)
	if err != nil {
		return fmt.Errorf("query care dates: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var plantID, careType, date string
		if err := rows.Scan(&plantID, &careType, &date); err != nil {
			return fmt.Errorf("scan care date: %w", err)
		}
		i, ok := index[plantID]
		if !ok {
			continue
		}
		p := &plants[i]
		switch domain.CareKind(careType) {
		case domain.CareWater:
			p.WateredDates = append(p.WateredDates, date)
		case domain.CareFertilize:
			p.FertilizedDates = append(p.FertilizedDates, date)
		case domain.CareTreatment:
			p.TreatmentDates = append(p.TreatmentDates, date)
		}
	}
	return rows.Err()
}

// SavePlants implements store.Store. The revision row is bumped with a
// conditional UPDATE first, so a stale writer changes nothing.
func (s *Store) SavePlants(ctx context.Context, plants []domain.Plant, expected uint64) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE revision SET value = value + 1 WHERE id = 1 AND value = ?`, expected)
	if err != nil {
		return 0, fmt.Errorf("bump revision: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, store.ErrRevisionConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM care_dates`); err != nil {
		return 0, fmt.Errorf("clear care dates: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM plants`); err != nil {
		return 0, fmt.Errorf("clear plants: %w", err)
	}

	plantStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO plants (id, user_id, name, photo, photo_blurhash, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer plantStmt.Close()

	dateStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO care_dates (plant_id, care_type, care_date, position)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer dateStmt.Close()

	for pos, p := range plants {
		if _, err := plantStmt.ExecContext(ctx,
			p.ID, p.UserID, p.Name,
			nullString(p.Photo), nullString(p.PhotoBlurHash),
			pos, formatTime(p.CreatedAt),
		); err != nil {
			return 0, fmt.Errorf("insert plant %s: %w", p.ID, err)
		}
		for _, kind := range domain.CareKinds {
			for i, date := range p.Dates(kind) {
				if _, err := dateStmt.ExecContext(ctx, p.ID, string(kind), date, i); err != nil {
					return 0, fmt.Errorf("insert %s date for %s: %w", kind, p.ID, err)
				}
			}
		}
	}

	var next uint64
	if err := tx.QueryRowContext(ctx, `SELECT value FROM revision WHERE id = 1`).Scan(&next); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return next, nil
}

// LoadSession implements store.Store.
func (s *Store) LoadSession(ctx context.Context) (*domain.User, error) {
	var (
		u           domain.User
		provider    string
		isAnonymous int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, email, name, provider, is_anonymous FROM session WHERE id = 1`,
	).Scan(&u.ID, &u.Email, &u.Name, &provider, &isAnonymous)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	u.Provider = domain.Provider(provider)
	u.IsAnonymous = isAnonymous != 0
	return &u, nil
}

// SaveSession implements store.Store.
func (s *Store) SaveSession(ctx context.Context, user *domain.User) error {
	if user == nil {
		return s.ClearSession(ctx)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session (id, user_id, email, name, provider, is_anonymous)
		VALUES (1, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			email = excluded.email,
			name = excluded.name,
			provider = excluded.provider,
			is_anonymous = excluded.is_anonymous`,
		user.ID, user.Email, user.Name, string(user.Provider), boolToInt(user.IsAnonymous),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// ClearSession implements store.Store.
func (s *Store) ClearSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
