package service

import (
	"context"
	"log/slog"

	"github.com/listenupapp/plantcare/internal/errors"
	"github.com/listenupapp/plantcare/internal/search"
)

// SearchService searches the active user's plants by name.
type SearchService struct {
	index  *search.PlantIndex
	plants *PlantService
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.PlantIndex, plants *PlantService, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		plants: plants,
		logger: logger,
	}
}

// Search runs query against the active user's plants.
func (s *SearchService) Search(ctx context.Context, query string, limit int) (*search.Result, error) {
	user := s.plants.State().User
	if user == nil {
		return nil, errors.ErrAuthenticationRequired
	}

	result, err := s.index.Search(ctx, search.Params{
		UserID: user.ID,
		Query:  query,
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error("search failed", "query", query, "error", err)
		return nil, errors.Wrap(err, errors.CodeInternal, "search failed")
	}
	return result, nil
}
