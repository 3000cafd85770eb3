package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/store"
	"github.com/listenupapp/plantcare/internal/store/storetest"
)

func newTestStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return newTestStore(t, t.TempDir())
	})
}

func TestLoadPlants_AcceptsBareArray(t *testing.T) {
	dir := t.TempDir()
	legacy := `[{"userId":"u1","id":"1714550400000","name":"Fern","photo":null,"wateredDates":["2024-05-01"],"createdAt":"2024-05-01T08:00:00.000Z"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plants_storage.json"), []byte(legacy), 0o600))

	s := newTestStore(t, dir)
	snap, err := s.LoadPlants(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(0), snap.Revision)
	require.Len(t, snap.Plants, 1)
	assert.Equal(t, []string{"2024-05-01"}, snap.Plants[0].WateredDates)
	assert.Equal(t, []string{}, snap.Plants[0].TreatmentDates)
}

func TestLoadPlants_MalformedIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plants_storage.json"), []byte(`{"revision":`), 0o600))

	s := newTestStore(t, dir)
	_, err := s.LoadPlants(context.Background())
	assert.ErrorIs(t, err, store.ErrCorrupt)
}

func TestSavePlants_WritesKeyFiles(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)
	ctx := context.Background()

	_, err := s.SavePlants(ctx, []domain.Plant{storetest.Plant("plant-1", "u1", "Fern")}, 0)
	require.NoError(t, err)
	require.NoError(t, s.SaveSession(ctx, &domain.User{ID: "u1"}))

	assert.FileExists(t, filepath.Join(dir, "plants_storage.json"))
	assert.FileExists(t, filepath.Join(dir, "plants_user.json"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestWatch_ReportsForeignWrites(t *testing.T) {
	dir := t.TempDir()
	ours := newTestStore(t, dir)
	theirs := newTestStore(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	require.NoError(t, ours.Watch(ctx, func() { changed <- struct{}{} }))

	_, err := theirs.SavePlants(ctx, []domain.Plant{storetest.Plant("plant-1", "u1", "Fern")}, 0)
	require.NoError(t, err)

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("expected change notification for foreign write")
	}
}

func TestWatch_IgnoresOwnWrites(t *testing.T) {
	dir := t.TempDir()
	s := newTestStore(t, dir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	require.NoError(t, s.Watch(ctx, func() { changed <- struct{}{} }))

	_, err := s.SavePlants(ctx, []domain.Plant{storetest.Plant("plant-1", "u1", "Fern")}, 0)
	require.NoError(t, err)

	select {
	case <-changed:
		t.Fatal("own write must not be reported")
	case <-time.After(300 * time.Millisecond):
	}
}
