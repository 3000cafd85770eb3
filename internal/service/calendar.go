package service

import (
	"context"
	"fmt"
	"time"

	"github.com/listenupapp/plantcare/internal/domain"
	"github.com/listenupapp/plantcare/internal/errors"
)

// CalendarService reconciles calendar cells with the plants' care dates.
type CalendarService struct {
	plants *PlantService
}

// NewCalendarService creates a calendar service over plants.
func NewCalendarService(plants *PlantService) *CalendarService {
	return &CalendarService{plants: plants}
}

// CalendarRow is one plant's states across a month.
type CalendarRow struct {
	PlantID string             `json:"plantId"`
	Name    string             `json:"name"`
	States  []domain.CellState `json:"states"`
}

// CalendarMonth is the grid of every plant by every day of a month.
type CalendarMonth struct {
	Month string        `json:"month"`
	Days  []string      `json:"days"`
	Rows  []CalendarRow `json:"rows"`
}

// ApplyState makes the plant's care on date match state exactly, in one
// write. Unknown states clear the date like StateEmpty.
func (s *CalendarService) ApplyState(ctx context.Context, plantID, date string, state domain.CellState) (PlantState, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return s.plants.State(), errors.Validationf("invalid date %q", date)
	}
	return s.plants.Modify(ctx, plantID, func(p domain.Plant) domain.Plant {
		return domain.ApplyState(p, date, state)
	})
}

// Month derives the state of every active-user plant on every day of month.
func (s *CalendarService) Month(year int, month time.Month) CalendarMonth {
	days := domain.MonthDays(year, month)
	plants := s.plants.State().Plants

	rows := make([]CalendarRow, 0, len(plants))
	for _, p := range plants {
		states := make([]domain.CellState, len(days))
		for i, day := range days {
			states[i] = domain.DeriveState(p, day)
		}
		rows = append(rows, CalendarRow{PlantID: p.ID, Name: p.Name, States: states})
	}

	return CalendarMonth{
		Month: fmt.Sprintf("%04d-%02d", year, int(month)),
		Days:  days,
		Rows:  rows,
	}
}
