package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/promptgallery/internal/app"
	"github.com/charlesng35/promptgallery/internal/handlers"
	"github.com/charlesng35/promptgallery/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if cfg == nil {
		return
	}

	var handler *handlers.HealthHandler
	if cfg.Monitoring.Health.Enabled && mon != nil {
		handler = handlers.NewHealthHandler(mon.Health())
	}

	if handler == nil {
		r.GET("/health", handlers.HealthDisabled)
		r.GET("/health/live", handlers.HealthDisabled)
		r.GET("/health/ready", handlers.HealthDisabled)

		api := r.Group("/api")
		api.GET("/health", handlers.HealthDisabled)
		api.GET("/health/live", handlers.HealthDisabled)
		api.GET("/health/ready", handlers.HealthDisabled)
		return
	}

	registerHealthEndpoints(r, handler)
	registerHealthEndpoints(r.Group("/api"), handler)
}

func registerHealthEndpoints(router gin.IRouter, handler *handlers.HealthHandler) {
	router.GET("/health", handler.Health)
	router.GET("/health/live", handler.Live)
	router.GET("/health/ready", handler.Ready)
}
