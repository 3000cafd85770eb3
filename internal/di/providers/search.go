package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/plantcare/internal/logger"
	"github.com/listenupapp/plantcare/internal/search"
	"github.com/listenupapp/plantcare/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.PlantIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the in-memory Bleve index. It is rebuilt
// from the active user's plants on every load.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewPlantIndex(search.Options{
		Logger: log.Component("search"),
	})
	if err != nil {
		return nil, err
	}

	log.Info("Search index initialized")

	return &SearchIndexHandle{PlantIndex: index}, nil
}

// ProvideSearchService provides the search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	plants := do.MustInvoke[*service.PlantService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(indexHandle.PlantIndex, plants, log.Component("search")), nil
}
