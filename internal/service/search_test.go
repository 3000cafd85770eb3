package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/search"
	"github.com/listenupapp/plantcare/internal/store"
)

func setupSearch(t *testing.T) (*SearchService, *PlantService) {
	t.Helper()
	index, err := search.NewPlantIndex(search.Options{Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	backend := store.NewMemory()
	t.Cleanup(func() { _ = backend.Close() })

	plants := NewPlantService(backend, testLogger(), WithIndexer(index))
	return NewSearchService(index, plants, testLogger()), plants
}

func TestSearchService_RequiresActiveUser(t *testing.T) {
	svc, _ := setupSearch(t)

	_, err := svc.Search(context.Background(), "fern", 10)
	assert.ErrorIs(t, err, errors.ErrAuthenticationRequired)
}

func TestSearchService_ScopedToActiveUser(t *testing.T) {
	ctx := context.Background()
	svc, plants := setupSearch(t)

	plants.SetActiveUser(ctx, &domain.User{ID: "alice"})
	_, _, err := plants.Add(ctx, domain.PlantDraft{Name: "Crème Fern"})
	require.NoError(t, err)

	plants.SetActiveUser(ctx, &domain.User{ID: "bob"})
	_, _, err = plants.Add(ctx, domain.PlantDraft{Name: "Cactus"})
	require.NoError(t, err)

	result, err := svc.Search(ctx, "fern", 10)
	require.NoError(t, err)
	assert.Empty(t, result.Hits, "alice's plants are not visible to bob")

	plants.SetActiveUser(ctx, &domain.User{ID: "alice"})
	result, err = svc.Search(ctx, "creme", 10)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "Crème Fern", result.Hits[0].Name)
}
