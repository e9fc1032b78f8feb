package monitoring_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dbtestutil "github.com/charlesng35/promptgallery/internal/database/testutil"
	"github.com/charlesng35/promptgallery/internal/monitoring"
	"github.com/charlesng35/promptgallery/internal/monitoring/checks"
	"github.com/charlesng35/promptgallery/pkg/metrics"
)

func setupModule(t *testing.T) *monitoring.Module {
	t.Helper()

	mod, err := monitoring.NewModule(monitoring.Options{})
	require.NoError(t, err)
	monitoring.SetModule(mod)
	return mod
}

func TestSummaryAggregatesMetrics(t *testing.T) {
	setupModule(t)

	monitoring.RecordImageRequest(monitoring.ImageResultHit, 10*time.Millisecond)
	monitoring.RecordImageRequest(monitoring.ImageResultHit, 10*time.Millisecond)
	monitoring.RecordImageRequest(monitoring.ImageResultGenerated, 4*time.Second)
	monitoring.RecordImageRequest(monitoring.ImageResultRejected, time.Millisecond)
	monitoring.RecordImageRequest("upstream", time.Second)
	monitoring.RecordPromptFetch("success", 12)
	monitoring.RecordPromptFetch("failure", 0)
	monitoring.RecordMaintenanceRun("cache_purge", "success", "", time.Second)

	summary := monitoring.Snapshot()
	require.Equal(t, uint64(2), summary.Images.CacheHits)
	require.Equal(t, uint64(1), summary.Images.Generated)
	require.Equal(t, uint64(1), summary.Images.Rejected)
	require.Equal(t, uint64(1), summary.Images.Failed)
	require.InDelta(t, 2.0/3.0, summary.Images.CacheHitRatio, 0.0001)
	require.InDelta(t, 4.0, summary.Images.AverageGenerationSeconds, 0.0001)
	require.Equal(t, int64(12), summary.Prompts.LastCount)
	require.Equal(t, uint64(1), summary.Prompts.Failure)
	require.Len(t, summary.Maintenance.Jobs, 1)
}

func TestModuleHandlerServesMetrics(t *testing.T) {
	mod := setupModule(t)
	metrics.ImageCacheLookups.WithLabelValues("miss").Inc()
	monitoring.ObserveRequest("get", "/api/image", http.StatusOK, 50*time.Millisecond)
	monitoring.ObserveRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	recorder := httptest.NewRecorder()
	mod.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	require.Contains(t, body, `promptgallery_api_latency_seconds_count{method="GET",route="/api/image",status="200"} 1`)
	require.Contains(t, body, `promptgallery_api_latency_seconds_count{method="GET",route="unmatched",status="404"} 1`)
	require.Contains(t, body, "promptgallery_image_cache_lookups_total")
}

func TestHealthManagerEvaluate(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("database", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDown, Details: "connection refused"}
	}))

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Len(t, report.Checks, 2)
}

func TestHealthManagerRecoversPanickingCheck(t *testing.T) {
	t.Parallel()

	manager := monitoring.NewHealthManager()
	manager.RegisterLiveness(monitoring.NewCheck("flaky", func(ctx context.Context) monitoring.ProbeResult {
		panic("probe exploded")
	}))

	report := manager.EvaluateLiveness(context.Background())
	require.Equal(t, monitoring.StatusDown, report.Status)
	require.Equal(t, "flaky", report.Checks[0].Component)
	require.Equal(t, "probe exploded", report.Checks[0].Details)
}

func TestCacheCheck(t *testing.T) {
	t.Parallel()

	up := checks.Cache("kv_rest", checks.PingFunc(func(context.Context) error { return nil }), 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, up.Status)

	down := checks.Cache("redis", checks.PingFunc(func(context.Context) error { return errors.New("refused") }), 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, down.Status)
	require.Equal(t, "refused", down.Details)

	slow := checks.Cache("redis", checks.PingFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), 10*time.Millisecond).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, slow.Status)

	missing := checks.Cache("kv_rest", nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, missing.Status)
}

func TestMaintenanceCheck(t *testing.T) {
	setupModule(t)
	check := checks.Maintenance("cache_purge", time.Hour)

	result := check.Run(context.Background())
	require.Equal(t, monitoring.StatusUp, result.Status)
	require.Contains(t, result.Details, "awaiting first run")

	monitoring.RecordMaintenanceRun("cache_purge", "success", "", time.Second)
	monitoring.RecordMaintenanceRun("other_job", "failure", "timeout", time.Second)
	require.Equal(t, monitoring.StatusUp, check.Run(context.Background()).Status)

	monitoring.RecordMaintenanceRun("cache_purge", "failure", "disk full", time.Second)
	result = check.Run(context.Background())
	require.Equal(t, monitoring.StatusDegraded, result.Status)
	require.Contains(t, result.Details, "disk full")
}

func TestDatabaseCheck(t *testing.T) {
	up := checks.Database(dbtestutil.MustOpenTestDB(t), 0).Run(context.Background())
	require.Equal(t, monitoring.StatusUp, up.Status)
	require.Equal(t, "sqlite", up.Details)

	missing := checks.Database(nil, 0).Run(context.Background())
	require.Equal(t, monitoring.StatusDown, missing.Status)
}

func TestHealthManagerWorstStatusWins(t *testing.T) {
	t.Parallel()

	require.Equal(t, monitoring.StatusDegraded, monitoring.Worse(monitoring.StatusUp, monitoring.StatusDegraded))
	require.Equal(t, monitoring.StatusDown, monitoring.Worse(monitoring.StatusDown, monitoring.StatusDegraded))
	require.Equal(t, monitoring.StatusDown, monitoring.Worse(monitoring.StatusUp, "unknown"))

	manager := monitoring.NewHealthManager()
	manager.RegisterReadiness(monitoring.NewCheck("cache", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusDegraded}
	}))
	manager.RegisterReadiness(monitoring.Check{Name: "ignored"})

	report := manager.EvaluateReadiness(context.Background())
	require.False(t, report.Success)
	require.Equal(t, monitoring.StatusDegraded, report.Status)
	require.Len(t, report.Checks, 1)

	empty := monitoring.NewHealthManager().EvaluateLiveness(context.Background())
	require.True(t, empty.Success)
	require.Equal(t, monitoring.StatusUp, empty.Status)
}

func TestSummaryMaintenanceJobsTrackStreaks(t *testing.T) {
	setupModule(t)

	monitoring.RecordMaintenanceRun("zz_rotate", "success", "", time.Second)
	monitoring.RecordMaintenanceRun("cache_purge", "failure", "disk full", time.Second)
	monitoring.RecordMaintenanceRun("cache_purge", "failure", "disk full", time.Second)
	monitoring.RecordMaintenanceRun("cache_purge", "success", "", -time.Second)

	jobs := monitoring.Snapshot().Maintenance.Jobs
	require.Len(t, jobs, 2)
	require.Equal(t, "cache_purge", jobs[0].Job)
	require.Equal(t, "zz_rotate", jobs[1].Job)

	purge := jobs[0]
	require.EqualValues(t, 3, purge.TotalRuns)
	require.Zero(t, purge.ConsecutiveFailures)
	require.EqualValues(t, 1, purge.ConsecutiveSuccess)
	require.Empty(t, purge.LastError)
	require.Zero(t, purge.LastDuration)
	require.False(t, purge.LastSuccessAt.IsZero())
}
