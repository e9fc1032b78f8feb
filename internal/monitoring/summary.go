package monitoring

import "time"

// Summary is the JSON body of the monitoring summary endpoint.
type Summary struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Images      ImageSummary       `json:"images"`
	Prompts     PromptSummary      `json:"prompts"`
	Maintenance MaintenanceSummary `json:"maintenance"`
}

type ImageSummary struct {
	CacheHits                uint64    `json:"cache_hits"`
	Generated                uint64    `json:"generated"`
	Rejected                 uint64    `json:"rejected"`
	Failed                   uint64    `json:"failed"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	AverageGenerationSeconds float64   `json:"average_generation_seconds"`
	LastServedAt             time.Time `json:"last_served_at"`
}

type PromptSummary struct {
	Success     uint64    `json:"success"`
	Failure     uint64    `json:"failure"`
	LastCount   int64     `json:"last_count"`
	LastFetchAt time.Time `json:"last_fetch_at"`
}

type MaintenanceSummary struct {
	Jobs []MaintenanceJobSummary `json:"jobs"`
}

type MaintenanceJobSummary struct {
	Job                 string        `json:"job"`
	LastStatus          string        `json:"last_status"`
	LastRunAt           time.Time     `json:"last_run_at"`
	LastDuration        time.Duration `json:"last_duration"`
	LastError           string        `json:"last_error,omitempty"`
	ConsecutiveFailures uint64        `json:"consecutive_failures"`
	ConsecutiveSuccess  uint64        `json:"consecutive_success"`
	LastSuccessAt       time.Time     `json:"last_success_at"`
	TotalRuns           uint64        `json:"total_runs"`
}

// Snapshot summarises what m has recorded so far.
func (m *Module) Snapshot() Summary {
	if m == nil {
		return Summary{GeneratedAt: time.Now()}
	}
	return m.stats.summary()
}

// Snapshot summarises the installed module.
func Snapshot() Summary {
	return ensureModule().Snapshot()
}
