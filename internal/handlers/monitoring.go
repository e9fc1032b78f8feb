package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/promptgallery/internal/app"
	"github.com/charlesng35/promptgallery/internal/monitoring"
)

// MonitoringHandler surfaces monitoring summaries for operators.
type MonitoringHandler struct {
	module *monitoring.Module
	cfg    *app.Config
}

// NewMonitoringHandler constructs a monitoring handler. Returns nil when the summary is disabled.
func NewMonitoringHandler(module *monitoring.Module, cfg *app.Config) *MonitoringHandler {
	if module == nil || cfg == nil || !cfg.Monitoring.Summary.Enabled {
		return nil
	}
	return &MonitoringHandler{module: module, cfg: cfg}
}

// GET /api/monitoring/summary
func (h *MonitoringHandler) Summary(c *gin.Context) {
	snapshot := h.module.Snapshot()
	endpoint := strings.TrimSpace(h.cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		endpoint = "/metrics"
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": snapshot,
		"prometheus": gin.H{
			"enabled":  h.cfg.Monitoring.Prometheus.Enabled,
			"endpoint": endpoint,
		},
		"image": gin.H{
			"quota_enabled": h.cfg.Image.Quota.Enabled,
			"daily_limit":   h.cfg.Image.Quota.Limit,
			"cache_driver":  h.cfg.Cache.Driver,
		},
	})
}
