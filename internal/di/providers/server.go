package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/listenupapp/plantcare/internal/api"
	"github.com/listenupapp/plantcare/internal/auth"
	"github.com/listenupapp/plantcare/internal/config"
	"github.com/listenupapp/plantcare/internal/logger"
	"github.com/listenupapp/plantcare/internal/media/photos"
	"github.com/listenupapp/plantcare/internal/metrics"
	"github.com/listenupapp/plantcare/internal/ratelimit"
	"github.com/listenupapp/plantcare/internal/service"
)

// Version is reported in the OpenAPI document.
var Version = "dev"

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
	api *api.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer h.api.Close()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	recorder := do.MustInvoke[*metrics.Prometheus](i)

	services := &api.Services{
		Session:     do.MustInvoke[*auth.SessionService](i),
		Tokens:      do.MustInvoke[*auth.TokenService](i),
		Plants:      do.MustInvoke[*service.PlantService](i),
		Calendar:    do.MustInvoke[*service.CalendarService](i),
		Search:      do.MustInvoke[*service.SearchService](i),
		Photos:      do.MustInvoke[*photos.Service](i),
		Store:       storeHandle.Store,
		SearchIndex: indexHandle.PlantIndex,
		SSE:         sseHandle.Manager,
	}

	handler := api.NewServer(services, api.Options{
		Version:       Version,
		CORSOrigins:   cfg.Server.CORSOrigins,
		SignInLimiter: ratelimit.PerMinute(cfg.RateLimit.SignInPerMinute, cfg.RateLimit.SignInBurst),
		Metrics:       recorder.Handler(),
		MaxPhotoBytes: cfg.Photos.MaxBytes,
	}, log.Component("api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "name", cfg.Server.Name)

	return &HTTPServerHandle{Server: srv, api: handler}, nil
}
