package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/plantcare/internal/domain"
	domainerrors "github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/media/photos"
	"github.com/listenupapp/plantcare/internal/service"
)

func (s *Server) registerPlantRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPlants",
		Method:      http.MethodGet,
		Path:        "/api/v1/plants",
		Summary:     "List plants",
		Description: "Returns the signed-in user's plants, most recent first",
		Tags:        []string{"Plants"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListPlants)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createPlant",
		Method:        http.MethodPost,
		Path:          "/api/v1/plants",
		Summary:       "Create plant",
		Description:   "Adds a plant to the signed-in user's collection",
		Tags:          []string{"Plants"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  s.photoBodyLimit(),
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreatePlant)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlant",
		Method:      http.MethodGet,
		Path:        "/api/v1/plants/{id}",
		Summary:     "Get plant",
		Description: "Returns a plant with its care summary",
		Tags:        []string{"Plants"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetPlant)

	huma.Register(s.api, huma.Operation{
		OperationID:  "updatePlant",
		Method:       http.MethodPatch,
		Path:         "/api/v1/plants/{id}",
		Summary:      "Update plant",
		Description:  "Renames a plant or replaces its photo",
		Tags:         []string{"Plants"},
		MaxBodyBytes: s.photoBodyLimit(),
		Security:     []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePlant)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deletePlant",
		Method:        http.MethodDelete,
		Path:          "/api/v1/plants/{id}",
		Summary:       "Delete plant",
		Description:   "Removes a plant and its uploaded photo",
		Tags:          []string{"Plants"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeletePlant)
}

// === DTOs ===

// PlantResponse contains plant data in API responses.
type PlantResponse struct {
	ID              string             `json:"id" doc:"Plant ID"`
	UserID          string             `json:"userId" doc:"Owner user ID"`
	Name            string             `json:"name" doc:"Plant name"`
	Photo           string             `json:"photo,omitempty" doc:"Photo reference: data URI or photo URL"`
	PhotoBlurHash   string             `json:"photoBlurHash,omitempty" doc:"BlurHash placeholder for the photo"`
	WateredDates    []string           `json:"wateredDates" doc:"Dates watered (YYYY-MM-DD)"`
	FertilizedDates []string           `json:"fertilizedDates" doc:"Dates fertilized (YYYY-MM-DD)"`
	TreatmentDates  []string           `json:"treatmentDates" doc:"Dates treated (YYYY-MM-DD)"`
	Summary         domain.CareSummary `json:"summary" doc:"Most recent date of each kind of care"`
	CreatedAt       time.Time          `json:"createdAt" doc:"Creation time"`
}

// ListPlantsResponse contains the signed-in user's plants.
type ListPlantsResponse struct {
	Plants   []PlantResponse `json:"plants" doc:"Plants, most recent first"`
	Revision uint64          `json:"revision" doc:"Store revision the list was read at"`
	Loading  bool            `json:"loading" doc:"Whether a load is in progress"`
	Error    string          `json:"error,omitempty" doc:"Last storage failure, if any"`
}

// ListPlantsOutput wraps the list response for Huma.
type ListPlantsOutput struct {
	Body ListPlantsResponse
}

// CreatePlantRequest is the request body for creating a plant.
type CreatePlantRequest struct {
	Name            string   `json:"name" validate:"required,min=1,max=100" doc:"Plant name"`
	Photo           string   `json:"photo,omitempty" doc:"Photo reference from the upload endpoint"`
	PhotoBlurHash   string   `json:"photoBlurHash,omitempty" validate:"omitempty,max=100" doc:"BlurHash from the upload endpoint"`
	WateredDates    []string `json:"wateredDates,omitempty" validate:"omitempty,dive,datetime=2006-01-02" doc:"Initial watering dates"`
	FertilizedDates []string `json:"fertilizedDates,omitempty" validate:"omitempty,dive,datetime=2006-01-02" doc:"Initial fertilizing dates"`
	TreatmentDates  []string `json:"treatmentDates,omitempty" validate:"omitempty,dive,datetime=2006-01-02" doc:"Initial treatment dates"`
}

// CreatePlantInput wraps the create request for Huma.
type CreatePlantInput struct {
	Body CreatePlantRequest
}

// PlantOutput wraps a plant response for Huma.
type PlantOutput struct {
	Body PlantResponse
}

// PlantIDInput identifies a plant by path.
type PlantIDInput struct {
	ID string `path:"id" doc:"Plant ID"`
}

// UpdatePlantRequest is the request body for updating a plant.
type UpdatePlantRequest struct {
	Name          *string `json:"name,omitempty" validate:"omitempty,min=1,max=100" doc:"Plant name"`
	Photo         *string `json:"photo,omitempty" doc:"Photo reference; empty string removes the photo"`
	PhotoBlurHash *string `json:"photoBlurHash,omitempty" validate:"omitempty,max=100" doc:"BlurHash for the photo"`
}

// UpdatePlantInput wraps the update request for Huma.
type UpdatePlantInput struct {
	ID   string `path:"id" doc:"Plant ID"`
	Body UpdatePlantRequest
}

// === Handlers ===

func (s *Server) handleListPlants(ctx context.Context, _ *struct{}) (*ListPlantsOutput, error) {
	if _, err := s.requireUser(ctx); err != nil {
		return nil, err
	}

	state := s.services.Plants.State()
	resp := ListPlantsResponse{
		Plants:   make([]PlantResponse, len(state.Plants)),
		Revision: state.Revision,
		Loading:  state.Loading,
	}
	for i, p := range state.Plants {
		resp.Plants[i] = toPlantResponse(p)
	}
	if state.Err != nil {
		resp.Error = state.Err.Error()
	}

	return &ListPlantsOutput{Body: resp}, nil
}

func (s *Server) handleCreatePlant(ctx context.Context, input *CreatePlantInput) (*PlantOutput, error) {
	user, err := s.requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	if err := checkPhotoRef(user.ID, input.Body.Photo); err != nil {
		return nil, err
	}

	plant, _, err := s.services.Plants.Add(ctx, domain.PlantDraft{
		Name:            input.Body.Name,
		Photo:           input.Body.Photo,
		PhotoBlurHash:   input.Body.PhotoBlurHash,
		WateredDates:    input.Body.WateredDates,
		FertilizedDates: input.Body.FertilizedDates,
		TreatmentDates:  input.Body.TreatmentDates,
	})
	if err != nil {
		return nil, err
	}

	return &PlantOutput{Body: toPlantResponse(plant)}, nil
}

func (s *Server) handleGetPlant(ctx context.Context, input *PlantIDInput) (*PlantOutput, error) {
	plant, err := s.findPlant(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &PlantOutput{Body: toPlantResponse(plant)}, nil
}

func (s *Server) handleUpdatePlant(ctx context.Context, input *UpdatePlantInput) (*PlantOutput, error) {
	before, err := s.findPlant(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	if input.Body.Photo != nil {
		if err := checkPhotoRef(before.UserID, *input.Body.Photo); err != nil {
			return nil, err
		}
	}

	patch := domain.PlantPatch{
		Name:          input.Body.Name,
		Photo:         input.Body.Photo,
		PhotoBlurHash: input.Body.PhotoBlurHash,
	}
	if patch.Photo != nil && *patch.Photo == "" && patch.PhotoBlurHash == nil {
		// Removing the photo drops its placeholder too.
		empty := ""
		patch.PhotoBlurHash = &empty
	}

	state, err := s.services.Plants.Update(ctx, input.ID, patch)
	if err != nil {
		return nil, err
	}

	after, ok := findIn(state, input.ID)
	if !ok {
		return nil, domainerrors.NotFoundf("plant %s not found", input.ID)
	}
	if after.Photo != before.Photo {
		s.deletePhoto(ctx, state, before.Photo)
	}

	return &PlantOutput{Body: toPlantResponse(after)}, nil
}

func (s *Server) handleDeletePlant(ctx context.Context, input *PlantIDInput) (*struct{}, error) {
	plant, err := s.findPlant(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	state, err := s.services.Plants.Remove(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	s.deletePhoto(ctx, state, plant.Photo)

	return nil, nil
}

// findPlant authenticates the request and looks up one of the signed-in user's plants.
func (s *Server) findPlant(ctx context.Context, plantID string) (domain.Plant, error) {
	if _, err := s.requireUser(ctx); err != nil {
		return domain.Plant{}, err
	}

	plant, ok := s.services.Plants.Get(plantID)
	if !ok {
		return domain.Plant{}, domainerrors.NotFoundf("plant %s not found", plantID)
	}
	return plant, nil
}

// checkPhotoRef rejects a photo URL uploaded by a user other than userID.
// Data URIs and external URLs pass.
func checkPhotoRef(userID, ref string) error {
	if photos.IsServerRef(ref) && !photos.OwnedBy(ref, userID) {
		return domainerrors.Validation("photo belongs to another user")
	}
	return nil
}

// deletePhoto removes an uploaded photo once no plant in state references it.
// Failures are logged only; the plant change has already been persisted.
func (s *Server) deletePhoto(ctx context.Context, state service.PlantState, ref string) {
	if ref == "" || s.services.Photos == nil || state.User == nil {
		return
	}
	for _, p := range state.Plants {
		if p.Photo == ref {
			s.logger.Debug("photo still in use", "ref", ref, "plant_id", p.ID)
			return
		}
	}
	if err := s.services.Photos.Delete(ctx, state.User.ID, ref); err != nil {
		s.logger.Warn("failed to delete photo", "ref", ref, "error", err)
	}
}

func findIn(state service.PlantState, plantID string) (domain.Plant, bool) {
	for _, p := range state.Plants {
		if p.ID == plantID {
			return p, true
		}
	}
	return domain.Plant{}, false
}

func toPlantResponse(p domain.Plant) PlantResponse {
	return PlantResponse{
		ID:              p.ID,
		UserID:          p.UserID,
		Name:            p.Name,
		Photo:           p.Photo,
		PhotoBlurHash:   p.PhotoBlurHash,
		WateredDates:    nonNil(p.WateredDates),
		FertilizedDates: nonNil(p.FertilizedDates),
		TreatmentDates:  nonNil(p.TreatmentDates),
		Summary:         p.Summary(),
		CreatedAt:       p.CreatedAt,
	}
}

func nonNil(dates []string) []string {
	if dates == nil {
		return []string{}
	}
	return dates
}
