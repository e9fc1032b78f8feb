package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/promptgallery/internal/app"
	"github.com/charlesng35/promptgallery/internal/monitoring"
)

func TestMonitoringHandlerSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mod, err := monitoring.NewModule(monitoring.Options{DisableGoCollector: true, DisableProcessCollector: true})
	require.NoError(t, err)
	monitoring.SetModule(mod)

	monitoring.RecordImageRequest(monitoring.ImageResultHit, 5*time.Millisecond)
	monitoring.RecordMaintenanceRun("cache_purge", "success", "", 200*time.Millisecond)

	cfg := &app.Config{
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Summary:    app.SummaryConfig{Enabled: true},
		},
		Image: app.ImageConfig{Quota: app.QuotaConfig{Enabled: true, Limit: 50}},
		Cache: app.CacheConfig{Driver: app.CacheDriverKVRest},
	}
	handler := NewMonitoringHandler(mod, cfg)
	require.NotNil(t, handler)

	recorder := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(recorder)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/api/monitoring/summary", nil)

	handler.Summary(ctx)
	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Summary monitoring.Summary `json:"summary"`
		Image   struct {
			DailyLimit  int64  `json:"daily_limit"`
			CacheDriver string `json:"cache_driver"`
		} `json:"image"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	require.EqualValues(t, 1, body.Summary.Images.CacheHits)
	require.Len(t, body.Summary.Maintenance.Jobs, 1)
	require.EqualValues(t, 50, body.Image.DailyLimit)
	require.Equal(t, "kv_rest", body.Image.CacheDriver)
}

func TestMonitoringHandlerDisabledByDefault(t *testing.T) {
	mod, err := monitoring.NewModule(monitoring.Options{DisableGoCollector: true, DisableProcessCollector: true})
	require.NoError(t, err)

	require.Nil(t, NewMonitoringHandler(mod, &app.Config{}))
	require.Nil(t, NewMonitoringHandler(nil, &app.Config{Monitoring: app.MonitoringConfig{Summary: app.SummaryConfig{Enabled: true}}}))
}

func TestHealthHandlerReports(t *testing.T) {
	gin.SetMode(gin.TestMode)

	manager := monitoring.NewHealthManager()
	manager.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("cache", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))

	handler := NewHealthHandler(manager)
	require.NotNil(t, handler)

	router := gin.New()
	router.GET("/health", handler.Health)
	router.GET("/health/live", handler.Live)
	router.GET("/health/ready", handler.Ready)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"process"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "connection refused")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NotContains(t, rec.Body.String(), "checks")

	require.Nil(t, NewHealthHandler(nil))
}
