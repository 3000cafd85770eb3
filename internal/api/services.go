package api

import (
	"github.com/listenupapp/plantcare/internal/auth"
	"github.com/listenupapp/plantcare/internal/media/photos"
	"github.com/listenupapp/plantcare/internal/search"
	"github.com/listenupapp/plantcare/internal/service"
	"github.com/listenupapp/plantcare/internal/sse"
	"github.com/listenupapp/plantcare/internal/store"
)

// Services groups the dependencies the HTTP handlers call into.
type Services struct {
	Session  *auth.SessionService
	Tokens   *auth.TokenService
	Plants   *service.PlantService
	Calendar *service.CalendarService
	Search   *service.SearchService
	Photos   *photos.Service

	// Health checks. Any of these may be nil.
	Store       store.Store
	SearchIndex *search.PlantIndex
	SSE         *sse.Manager
}
