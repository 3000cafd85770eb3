// Package storetest holds the behaviour every store.Store backend must share.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/store"
)

// Factory opens a fresh, empty backend for one subtest.
type Factory func(t *testing.T) store.Store

// Plant builds a plant fixture.
func Plant(id, userID, name string, watered ...string) domain.Plant {
	return domain.Plant{
		ID:              id,
		UserID:          userID,
		Name:            name,
		WateredDates:    append([]string{}, watered...),
		FertilizedDates: []string{},
		TreatmentDates:  []string{},
		CreatedAt:       time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

// Run exercises the store contract against backends produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("EmptyStore", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		snap, err := s.LoadPlants(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Plants)
		assert.Equal(t, uint64(0), snap.Revision)

		user, err := s.LoadSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("SaveAndLoadPlants", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		fern := Plant("plant-1", "user-a", "Fern", "2024-05-01", "2024-05-01")
		fern.Photo = "data:image/png;base64,AAAA"
		fern.TreatmentDates = []string{"2024-04-20"}
		cactus := Plant("plant-2", "user-b", "Cactus")

		rev, err := s.SavePlants(ctx, []domain.Plant{fern, cactus}, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), rev)

		snap, err := s.LoadPlants(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), snap.Revision)
		require.Len(t, snap.Plants, 2)

		got := snap.ForUser("user-a")
		require.Len(t, got, 1)
		assert.Equal(t, "Fern", got[0].Name)
		assert.Equal(t, fern.Photo, got[0].Photo)
		assert.Equal(t, []string{"2024-05-01", "2024-05-01"}, got[0].WateredDates, "duplicates survive")
		assert.Equal(t, []string{}, got[0].FertilizedDates)
		assert.Equal(t, []string{"2024-04-20"}, got[0].TreatmentDates)
		assert.True(t, fern.CreatedAt.Equal(got[0].CreatedAt))
	})

	t.Run("PreservesOrder", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		plants := []domain.Plant{
			Plant("plant-c", "user-a", "C"),
			Plant("plant-a", "user-a", "A"),
			Plant("plant-b", "user-a", "B"),
		}
		_, err := s.SavePlants(ctx, plants, 0)
		require.NoError(t, err)

		snap, err := s.LoadPlants(ctx)
		require.NoError(t, err)
		var names []string
		for _, p := range snap.Plants {
			names = append(names, p.Name)
		}
		assert.Equal(t, []string{"C", "A", "B"}, names)
	})

	t.Run("RevisionAdvances", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		rev, err := s.SavePlants(ctx, []domain.Plant{Plant("plant-1", "u", "One")}, 0)
		require.NoError(t, err)

		rev, err = s.SavePlants(ctx, []domain.Plant{}, rev)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), rev)

		snap, err := s.LoadPlants(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Plants)
		assert.Equal(t, uint64(2), snap.Revision)
	})

	t.Run("StaleRevisionConflicts", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.SavePlants(ctx, []domain.Plant{Plant("plant-1", "u", "First")}, 0)
		require.NoError(t, err)

		_, err = s.SavePlants(ctx, []domain.Plant{Plant("plant-2", "u", "Stale")}, 0)
		require.Error(t, err)
		assert.True(t, errors.Is(err, store.ErrRevisionConflict))

		snap, err := s.LoadPlants(ctx)
		require.NoError(t, err)
		require.Len(t, snap.Plants, 1)
		assert.Equal(t, "First", snap.Plants[0].Name, "conflicting write is discarded")
	})

	t.Run("LoadedPlantsAreCopies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.SavePlants(ctx, []domain.Plant{Plant("plant-1", "u", "Fern", "2024-05-01")}, 0)
		require.NoError(t, err)

		first, err := s.LoadPlants(ctx)
		require.NoError(t, err)
		first.Plants[0].WateredDates[0] = "1999-01-01"

		second, err := s.LoadPlants(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"2024-05-01"}, second.Plants[0].WateredDates)
	})

	t.Run("SessionLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		user := &domain.User{
			ID:          "0190c6a8-1111-7000-8000-000000000001",
			Email:       "anonymous@plantcare.local",
			Name:        "Guest",
			Provider:    domain.ProviderAnonymous,
			IsAnonymous: true,
		}
		require.NoError(t, s.SaveSession(ctx, user))

		got, err := s.LoadSession(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, *user, *got)

		replacement := &domain.User{ID: "u2", Email: "demo@example.com", Name: "Demo", Provider: domain.ProviderGoogle}
		require.NoError(t, s.SaveSession(ctx, replacement))
		got, err = s.LoadSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, "u2", got.ID)

		require.NoError(t, s.ClearSession(ctx))
		got, err = s.LoadSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)

		require.NoError(t, s.ClearSession(ctx), "clearing twice is fine")
	})

	t.Run("SessionIndependentOfPlants", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveSession(ctx, &domain.User{ID: "u1"}))
		_, err := s.SavePlants(ctx, []domain.Plant{Plant("plant-1", "u1", "Fern")}, 0)
		require.NoError(t, err)
		require.NoError(t, s.ClearSession(ctx))

		snap, err := s.LoadPlants(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.Plants, 1)
	})
}
