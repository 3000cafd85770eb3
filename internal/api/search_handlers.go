package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/plantcare/internal/search"
)

func (s *Server) registerSearchRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "searchPlants",
		Method:      http.MethodGet,
		Path:        "/api/v1/plants/search",
		Summary:     "Search plants",
		Description: "Searches the signed-in user's plants by name. Matching ignores case and accents and tolerates small typos.",
		Tags:        []string{"Plants"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchPlants)
}

// SearchPlantsInput contains search parameters.
type SearchPlantsInput struct {
	Query string `query:"q" doc:"Search text; empty lists every plant by name"`
	Limit int    `query:"limit" minimum:"0" maximum:"100" default:"20" doc:"Maximum results"`
}

// SearchPlantsOutput wraps search results for Huma.
type SearchPlantsOutput struct {
	Body search.Result
}

func (s *Server) handleSearchPlants(ctx context.Context, input *SearchPlantsInput) (*SearchPlantsOutput, error) {
	if _, err := s.requireUser(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Search.Search(ctx, input.Query, input.Limit)
	if err != nil {
		return nil, err
	}
	return &SearchPlantsOutput{Body: *result}, nil
}
