package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/store"
	"github.com/listenupapp/plantcare/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var fk int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	for _, table := range []string{"plants", "care_dates", "revision", "session"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestSavePlants_OneRowPerCareDay(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := storetest.Plant("plant-1", "u1", "Fern", "2024-05-01", "2024-05-01")
	p.FertilizedDates = []string{"2024-05-01"}
	_, err := s.SavePlants(ctx, []domain.Plant{p}, 0)
	require.NoError(t, err)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM care_dates WHERE plant_id = ?`, "plant-1").Scan(&count))
	assert.Equal(t, 3, count)

	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM care_dates WHERE care_type = 'water'`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestSavePlants_ConflictLeavesRowsUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.SavePlants(ctx, []domain.Plant{storetest.Plant("plant-1", "u1", "Fern", "2024-05-01")}, 0)
	require.NoError(t, err)

	_, err = s.SavePlants(ctx, []domain.Plant{}, 7)
	require.ErrorIs(t, err, store.ErrRevisionConflict)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM care_dates`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSession_PersistsAnonymousFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, &domain.User{ID: "u1", Provider: domain.ProviderAnonymous, IsAnonymous: true}))

	var isAnonymous int
	require.NoError(t, s.db.QueryRow(`SELECT is_anonymous FROM session`).Scan(&isAnonymous))
	assert.Equal(t, 1, isAnonymous)
}
