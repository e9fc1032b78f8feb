package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/promptgallery/internal/app"
	"github.com/charlesng35/promptgallery/internal/handlers"
	"github.com/charlesng35/promptgallery/internal/middleware"
	"github.com/charlesng35/promptgallery/internal/monitoring"
)

// Dependencies carries the services the router exposes. Nil services still get routes;
// their handlers answer with the matching configuration error.
type Dependencies struct {
	Config     *app.Config
	Prompts    handlers.PromptFetcher
	Images     handlers.ImageGenerator
	Monitoring *monitoring.Module
}

// NewRouter builds the Gin engine, wires middleware and registers the gallery routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders(cfg.Server.HSTS))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))

	registerHealthRoutes(r, cfg, deps.Monitoring)

	if cfg.Monitoring.Prometheus.Enabled && deps.Monitoring != nil {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(deps.Monitoring.Handler()))
	}

	api := r.Group("/api")
	api.Use(middleware.RateLimit(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst))

	registerGalleryRoutes(api, deps)
	registerMonitoringRoutes(api, handlers.NewMonitoringHandler(deps.Monitoring, cfg))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
