// Package di provides dependency injection configuration for the plantcare server.
package di

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/plantcare/internal/auth"
	"github.com/listenupapp/plantcare/internal/config"
	"github.com/listenupapp/plantcare/internal/di/providers"
	"github.com/listenupapp/plantcare/internal/logger"
	"github.com/listenupapp/plantcare/internal/media/photos"
	"github.com/listenupapp/plantcare/internal/metrics"
	"github.com/listenupapp/plantcare/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvidePhotoService)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Observability
	do.Provide(injector, providers.ProvideMetrics)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideSessionService)

	// Business services
	do.Provide(injector, providers.ProvidePlantService)
	do.Provide(injector, providers.ProvideCalendarService)

	// Workers
	do.Provide(injector, providers.ProvideSessionBinding)
	do.Provide(injector, providers.ProvideStoreWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	log := do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*photos.Service](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*metrics.Prometheus](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)

	// Business services
	session := do.MustInvoke[*auth.SessionService](injector)
	_ = do.MustInvoke[*service.PlantService](injector)
	_ = do.MustInvoke[*service.CalendarService](injector)
	_ = do.MustInvoke[*service.SearchService](injector)

	// Workers
	_ = do.MustInvoke[*providers.SessionBindingHandle](injector)
	_ = do.MustInvoke[*providers.StoreWatcherHandle](injector)

	// Pick up the session from the last run now that the plant list follows it.
	if _, err := session.Restore(context.Background()); err != nil {
		log.Warn("Starting signed out, session could not be restored", "error", err)
	}

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
