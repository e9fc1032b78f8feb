package checks

import (
	"context"
	"fmt"
	"time"

	"github.com/charlesng35/promptgallery/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// Maintenance watches one scheduled job. A job that has not run yet is up, a failing job
// or one whose last run is older than maxAge is degraded. Purges only reclaim space,
// so they never take the gallery down.
func Maintenance(job string, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(context.Context) monitoring.ProbeResult {
		for _, summary := range monitoring.Snapshot().Maintenance.Jobs {
			if summary.Job != job {
				continue
			}
			switch {
			case summary.ConsecutiveFailures > 0:
				return monitoring.ProbeResult{
					Status:  monitoring.StatusDegraded,
					Details: fmt.Sprintf("%s: %d consecutive failures: %s", job, summary.ConsecutiveFailures, summary.LastError),
				}
			case time.Since(summary.LastRunAt) > maxAge:
				return monitoring.ProbeResult{
					Status:  monitoring.StatusDegraded,
					Details: job + ": last run " + summary.LastRunAt.UTC().Format(time.RFC3339),
				}
			default:
				return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: job}
			}
		}
		return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: job + ": awaiting first run"}
	})
}
