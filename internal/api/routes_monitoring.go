package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/promptgallery/internal/handlers"
)

func registerMonitoringRoutes(api *gin.RouterGroup, handler *handlers.MonitoringHandler) {
	if api == nil || handler == nil {
		return
	}

	group := api.Group("/monitoring")
	group.GET("/summary", handler.Summary)
}
