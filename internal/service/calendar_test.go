package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/search"
)

const day = "2024-05-01"

func setupCalendar(t *testing.T, draft domain.PlantDraft) (*CalendarService, *PlantService, *countingStore, string) {
	t.Helper()
	plants, backend := setupPlantService(t)
	plants.SetActiveUser(context.Background(), alice)
	p, _, err := plants.Add(context.Background(), draft)
	require.NoError(t, err)
	return NewCalendarService(plants), plants, backend, p.ID
}

func TestCalendarService_WaterFertilizeToAll(t *testing.T) {
	cal, plants, backend, plantID := setupCalendar(t, domain.PlantDraft{
		Name:            "Fern",
		WateredDates:    []string{day},
		FertilizedDates: []string{day},
	})
	p, _ := plants.Get(plantID)
	require.Equal(t, domain.StateWaterFertilize, domain.DeriveState(p, day))

	saves := backend.saves.Load()
	_, err := cal.ApplyState(context.Background(), plantID, day, domain.StateAll)
	require.NoError(t, err)
	assert.Equal(t, saves+1, backend.saves.Load(), "one write per cell change")

	p, _ = plants.Get(plantID)
	assert.Equal(t, domain.StateAll, domain.DeriveState(p, day))
	assert.Equal(t, []string{day}, p.WateredDates)
	assert.Equal(t, []string{day}, p.FertilizedDates)
	assert.Equal(t, []string{day}, p.TreatmentDates)
}

func TestCalendarService_DuplicatesRemoved(t *testing.T) {
	cal, plants, _, plantID := setupCalendar(t, domain.PlantDraft{
		Name:         "Fern",
		WateredDates: []string{day, "2024-04-30", day},
	})

	_, err := cal.ApplyState(context.Background(), plantID, day, domain.StateFertilize)
	require.NoError(t, err)

	p, _ := plants.Get(plantID)
	assert.Equal(t, []string{"2024-04-30"}, p.WateredDates)
	assert.Equal(t, []string{day}, p.FertilizedDates)
	assert.Equal(t, domain.StateFertilize, domain.DeriveState(p, day))
}

func TestCalendarService_RoundTripEveryState(t *testing.T) {
	ctx := context.Background()
	cal, plants, _, plantID := setupCalendar(t, domain.PlantDraft{Name: "Fern"})

	for _, state := range domain.CellStates {
		_, err := cal.ApplyState(ctx, plantID, day, state)
		require.NoError(t, err)
		p, _ := plants.Get(plantID)
		assert.Equal(t, state, domain.DeriveState(p, day), state)

		// Idempotent.
		_, err = cal.ApplyState(ctx, plantID, day, state)
		require.NoError(t, err)
		again, _ := plants.Get(plantID)
		assert.Equal(t, p, again, state)
	}

	_, err := cal.ApplyState(ctx, plantID, day, domain.CellState("sunbathe"))
	require.NoError(t, err)
	p, _ := plants.Get(plantID)
	assert.Equal(t, domain.StateEmpty, domain.DeriveState(p, day), "unknown states clear the cell")
}

func TestCalendarService_RejectsBadDates(t *testing.T) {
	cal, _, backend, plantID := setupCalendar(t, domain.PlantDraft{Name: "Fern"})
	saves := backend.saves.Load()

	_, err := cal.ApplyState(context.Background(), plantID, "May 1st", domain.StateWater)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, saves, backend.saves.Load())
}

func TestCalendarService_Month(t *testing.T) {
	cal, _, _, plantID := setupCalendar(t, domain.PlantDraft{
		Name:           "Fern",
		WateredDates:   []string{"2024-02-01", "2024-02-29"},
		TreatmentDates: []string{"2024-02-29", "2024-03-01"},
	})

	month := cal.Month(2024, time.February)
	assert.Equal(t, "2024-02", month.Month)
	require.Len(t, month.Days, 29)
	require.Len(t, month.Rows, 1)

	row := month.Rows[0]
	assert.Equal(t, plantID, row.PlantID)
	assert.Equal(t, domain.StateWater, row.States[0])
	assert.Equal(t, domain.StateEmpty, row.States[1])
	assert.Equal(t, domain.StateWaterTreatment, row.States[28])
}

func TestSearchService(t *testing.T) {
	ctx := context.Background()
	index, err := search.NewPlantIndex(search.Options{Logger: testLogger()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	plants, _ := setupPlantService(t, WithIndexer(index))
	svc := NewSearchService(index, plants, testLogger())

	_, err = svc.Search(ctx, "fern", 10)
	assert.ErrorIs(t, err, errors.ErrAuthenticationRequired)

	plants.SetActiveUser(ctx, alice)
	fern, _, err := plants.Add(ctx, domain.PlantDraft{Name: "Boston Fern"})
	require.NoError(t, err)
	_, _, err = plants.Add(ctx, domain.PlantDraft{Name: "Aloe Vera"})
	require.NoError(t, err)

	result, err := svc.Search(ctx, "fern", 10)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, fern.ID, result.Hits[0].ID)

	// Another user's index view is empty.
	plants.SetActiveUser(ctx, bob)
	result, err = svc.Search(ctx, "fern", 10)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}
