package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/plantcare/internal/domain"
	domainerrors "github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/service"
)

func (s *Server) registerCalendarRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getCalendarMonth",
		Method:      http.MethodGet,
		Path:        "/api/v1/calendar",
		Summary:     "Get calendar month",
		Description: "Returns the care state of every plant on every day of a month",
		Tags:        []string{"Calendar"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCalendarMonth)

	huma.Register(s.api, huma.Operation{
		OperationID: "setCalendarCell",
		Method:      http.MethodPut,
		Path:        "/api/v1/plants/{id}/calendar/{date}",
		Summary:     "Set calendar cell",
		Description: "Makes the plant's care on a date match the given state exactly",
		Tags:        []string{"Calendar"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSetCalendarCell)
}

// === DTOs ===

// CalendarMonthInput selects a month.
type CalendarMonthInput struct {
	Month string `query:"month" doc:"Month (YYYY-MM); defaults to the current UTC month"`
}

// CalendarMonthOutput wraps the month grid for Huma.
type CalendarMonthOutput struct {
	Body service.CalendarMonth
}

// SetCalendarCellRequest is the request body for setting a calendar cell.
type SetCalendarCellRequest struct {
	State string `json:"state" doc:"Cell state: empty, water, fertilize, treatment, water-fertilize, water-treatment, fertilize-treatment or all. Unknown states clear the cell."`
}

// SetCalendarCellInput wraps the cell request for Huma.
type SetCalendarCellInput struct {
	ID   string `path:"id" doc:"Plant ID"`
	Date string `path:"date" doc:"Date (YYYY-MM-DD)"`
	Body SetCalendarCellRequest
}

// CalendarCellResponse is the plant after a cell change, with the cell's new state.
type CalendarCellResponse struct {
	Date  string        `json:"date" doc:"Date (YYYY-MM-DD)"`
	State string        `json:"state" doc:"State now derived for the date"`
	Plant PlantResponse `json:"plant" doc:"Updated plant"`
}

// CalendarCellOutput wraps the cell response for Huma.
type CalendarCellOutput struct {
	Body CalendarCellResponse
}

// === Handlers ===

func (s *Server) handleGetCalendarMonth(ctx context.Context, input *CalendarMonthInput) (*CalendarMonthOutput, error) {
	if _, err := s.requireUser(ctx); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	year, month := now.Year(), now.Month()
	if input.Month != "" {
		var err error
		year, month, err = domain.ParseMonth(input.Month)
		if err != nil {
			return nil, domainerrors.Validationf("invalid month %q, expected YYYY-MM", input.Month)
		}
	}

	return &CalendarMonthOutput{Body: s.services.Calendar.Month(year, month)}, nil
}

func (s *Server) handleSetCalendarCell(ctx context.Context, input *SetCalendarCellInput) (*CalendarCellOutput, error) {
	if _, err := s.findPlant(ctx, input.ID); err != nil {
		return nil, err
	}

	state, err := s.services.Calendar.ApplyState(ctx, input.ID, input.Date, domain.CellState(input.Body.State))
	if err != nil {
		return nil, err
	}

	plant, ok := findIn(state, input.ID)
	if !ok {
		return nil, domainerrors.NotFoundf("plant %s not found", input.ID)
	}

	return &CalendarCellOutput{Body: CalendarCellResponse{
		Date:  input.Date,
		State: string(domain.DeriveState(plant, input.Date)),
		Plant: toPlantResponse(plant),
	}}, nil
}
