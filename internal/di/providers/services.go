package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/plantcare/internal/logger"
	"github.com/listenupapp/plantcare/internal/metrics"
	"github.com/listenupapp/plantcare/internal/service"
)

// ProvideMetrics provides the Prometheus recorder.
func ProvideMetrics(i do.Injector) (*metrics.Prometheus, error) {
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	return metrics.NewPrometheus(sseHandle.ClientCount), nil
}

// ProvidePlantService provides the record store for the active user's plants.
func ProvidePlantService(i do.Injector) (*service.PlantService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	recorder := do.MustInvoke[*metrics.Prometheus](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPlantService(storeHandle.Store, log.Component("plants"),
		service.WithEmitter(sseHandle.Manager),
		service.WithIndexer(indexHandle.PlantIndex),
		service.WithMetrics(recorder),
	), nil
}

// ProvideCalendarService provides the calendar reconciler.
func ProvideCalendarService(i do.Injector) (*service.CalendarService, error) {
	plants := do.MustInvoke[*service.PlantService](i)

	return service.NewCalendarService(plants), nil
}
