package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/plantcare/internal/domain"
	domainerrors "github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/service"
)

func (s *Server) registerCareRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "addCareDate",
		Method:      http.MethodPost,
		Path:        "/api/v1/plants/{id}/care",
		Summary:     "Record care",
		Description: "Records watering, fertilizing or treatment on a date (today, UTC, when omitted)",
		Tags:        []string{"Care"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddCareDate)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeCareDate",
		Method:      http.MethodDelete,
		Path:        "/api/v1/plants/{id}/care/{kind}/{date}",
		Summary:     "Remove care",
		Description: "Removes every record of one kind of care on a date",
		Tags:        []string{"Care"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemoveCareDate)
}

// === DTOs ===

// AddCareRequest is the request body for recording care.
type AddCareRequest struct {
	Kind string `json:"kind" enum:"water,fertilize,treatment" validate:"required,carekind" doc:"Kind of care"`
	Date string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02" doc:"Date (YYYY-MM-DD); defaults to today"`
}

// AddCareInput wraps the care request for Huma.
type AddCareInput struct {
	ID   string `path:"id" doc:"Plant ID"`
	Body AddCareRequest
}

// RemoveCareInput identifies the care record to remove.
type RemoveCareInput struct {
	ID   string `path:"id" doc:"Plant ID"`
	Kind string `path:"kind" enum:"water,fertilize,treatment" doc:"Kind of care"`
	Date string `path:"date" doc:"Date (YYYY-MM-DD)"`
}

// === Handlers ===

func (s *Server) handleAddCareDate(ctx context.Context, input *AddCareInput) (*PlantOutput, error) {
	if _, err := s.findPlant(ctx, input.ID); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	kind := domain.CareKind(input.Body.Kind)
	var (
		state service.PlantState
		err   error
	)
	if input.Body.Date == "" {
		state, err = s.services.Plants.CareToday(ctx, input.ID, kind)
	} else {
		state, err = s.services.Plants.AddCareDate(ctx, input.ID, input.Body.Date, kind)
	}
	if err != nil {
		return nil, err
	}

	return s.plantOutput(state, input.ID)
}

func (s *Server) handleRemoveCareDate(ctx context.Context, input *RemoveCareInput) (*PlantOutput, error) {
	if _, err := s.findPlant(ctx, input.ID); err != nil {
		return nil, err
	}

	kind, err := domain.ParseCareKind(input.Kind)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
	}
	if _, err := domain.ParseDate(input.Date); err != nil {
		return nil, domainerrors.Validationf("invalid date %q", input.Date)
	}

	state, err := s.services.Plants.RemoveCareDate(ctx, input.ID, input.Date, kind)
	if err != nil {
		return nil, err
	}

	return s.plantOutput(state, input.ID)
}

// plantOutput picks the plant out of the state returned by a mutation.
func (s *Server) plantOutput(state service.PlantState, plantID string) (*PlantOutput, error) {
	plant, ok := findIn(state, plantID)
	if !ok {
		return nil, domainerrors.NotFoundf("plant %s not found", plantID)
	}
	return &PlantOutput{Body: toPlantResponse(plant)}, nil
}
