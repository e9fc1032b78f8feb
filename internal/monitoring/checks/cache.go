package checks

import (
	"context"
	"time"

	"github.com/charlesng35/promptgallery/internal/monitoring"
)

// Cache returns a readiness probe for the image cache. The gallery still serves prompts
// without a cache, so a missing store is reported as degraded rather than down.
func Cache(driver string, store Pinger, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: driver + " cache not configured"}
		}
		return ping(ctx, "cache", driver, store, timeout)
	})
}
