package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/plantcare/internal/store"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"store":  s.checkStore(ctx),
		"search": s.checkSearchIndex(),
		"sse":    s.checkSSE(),
	}

	overall := statusHealthy
	for name, c := range components {
		switch {
		case c.Status == statusUnhealthy && name == "store":
			overall = statusUnhealthy
		case c.Status != statusHealthy && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	return &HealthOutput{Body: HealthResponse{Status: overall, Components: components}}, nil
}

func (s *Server) checkStore(ctx context.Context) ComponentHealth {
	if s.services.Store == nil {
		return ComponentHealth{Status: statusUnhealthy, Message: "store not configured"}
	}

	pinger, ok := s.services.Store.(store.Pinger)
	if !ok {
		return ComponentHealth{Status: statusHealthy, Message: "no ping support"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := pinger.Ping(ctx); err != nil {
		return ComponentHealth{Status: statusUnhealthy, Message: err.Error()}
	}
	return ComponentHealth{Status: statusHealthy, Latency: time.Since(start).String()}
}

func (s *Server) checkSearchIndex() ComponentHealth {
	if s.services.SearchIndex == nil {
		return ComponentHealth{Status: statusDegraded, Message: "search index not configured"}
	}

	count, err := s.services.SearchIndex.DocumentCount()
	if err != nil {
		return ComponentHealth{Status: statusDegraded, Message: err.Error()}
	}
	return ComponentHealth{Status: statusHealthy, Message: fmt.Sprintf("%d documents indexed", count)}
}

func (s *Server) checkSSE() ComponentHealth {
	if s.services.SSE == nil {
		return ComponentHealth{Status: statusDegraded, Message: "event stream not configured"}
	}
	return ComponentHealth{Status: statusHealthy, Message: fmt.Sprintf("%d clients connected", s.services.SSE.ClientCount())}
}
