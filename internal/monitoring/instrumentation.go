package monitoring

import (
	"strconv"
	"strings"
	"time"
)

// Image request outcomes.
const (
	ImageResultHit       = "hit"
	ImageResultGenerated = "generated"
	ImageResultRejected  = "rejected"
	ImageResultFailed    = "failed"
)

// UnmatchedRoute labels requests that no gin route matched.
const UnmatchedRoute = "unmatched"

// withModule runs fn against the installed module. Recording is a no-op
// until SetModule has been called.
func withModule(fn func(m *Module)) {
	if m := ensureModule(); m != nil {
		fn(m)
	}
}

// ObserveRequest records one HTTP request. route is the gin route pattern so
// the label set stays bounded by the router table.
func ObserveRequest(method, route string, status int, d time.Duration) {
	withModule(func(m *Module) {
		if route = strings.TrimSpace(route); route == "" {
			route = UnmatchedRoute
		}
		m.metrics.apiLatency.
			WithLabelValues(strings.ToUpper(method), route, strconv.Itoa(status)).
			Observe(max(d, 0).Seconds())
	})
}

// RecordImageRequest records how an image request ended and how long it took.
func RecordImageRequest(result string, d time.Duration) {
	withModule(func(m *Module) {
		label := normalizeLabel(result)
		m.metrics.imageRequests.WithLabelValues(label).Inc()
		observeDuration(m.metrics.imageLatency.WithLabelValues(label), d)
		m.stats.recordImage(label, d)
	})
}

// RecordPromptFetch records a prompt list fetch. count is ignored on failure.
func RecordPromptFetch(result string, count int) {
	withModule(func(m *Module) {
		label := normalizeLabel(result)
		m.metrics.promptFetches.WithLabelValues(label).Inc()
		if label == "success" {
			m.metrics.promptRecords.Set(float64(count))
		}
		m.stats.recordPromptFetch(label, count)
	})
}

// RecordMaintenanceRun records the completion of a maintenance job.
func RecordMaintenanceRun(job, result, message string, d time.Duration) {
	withModule(func(m *Module) {
		job, result = normalizeLabel(job), normalizeLabel(result)
		m.metrics.maintenanceRuns.WithLabelValues(job, result).Inc()
		observeDuration(m.metrics.maintenanceDuration.WithLabelValues(job), d)
		if result == "success" {
			m.metrics.maintenanceLastRun.WithLabelValues(job).SetToCurrentTime()
		}
		m.stats.recordMaintenance(job, result, strings.TrimSpace(message), d)
	})
}

func normalizeLabel(value string) string {
	if value = strings.ToLower(strings.TrimSpace(value)); value != "" {
		return value
	}
	return "unknown"
}
