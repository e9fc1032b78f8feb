package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// statStore backs the operator summary. Image and prompt counters are hot
// and lock-free; maintenance jobs run rarely and share one mutex.
type statStore struct {
	hits, generated, rejected, failed atomic.Uint64
	generationTotal                   atomic.Int64
	lastImage                         atomic.Int64

	promptOK, promptFailed atomic.Uint64
	promptCount            atomic.Int64
	lastPrompt             atomic.Int64

	mu   sync.Mutex
	jobs map[string]*MaintenanceJobSummary
}

func newStatStore() *statStore {
	return &statStore{jobs: make(map[string]*MaintenanceJobSummary)}
}

func (s *statStore) recordImage(result string, d time.Duration) {
	switch result {
	case ImageResultHit:
		s.hits.Add(1)
	case ImageResultGenerated:
		s.generated.Add(1)
		s.generationTotal.Add(int64(max(d, 0)))
	case ImageResultRejected:
		s.rejected.Add(1)
	default:
		s.failed.Add(1)
	}
	s.lastImage.Store(time.Now().UnixNano())
}

func (s *statStore) recordPromptFetch(result string, count int) {
	if result != "success" {
		s.promptFailed.Add(1)
		return
	}
	s.promptOK.Add(1)
	s.promptCount.Store(int64(count))
	s.lastPrompt.Store(time.Now().UnixNano())
}

func (s *statStore) recordMaintenance(job, result, message string, d time.Duration) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.jobs[job]
	if !ok {
		entry = &MaintenanceJobSummary{Job: job}
		s.jobs[job] = entry
	}
	entry.LastStatus = result
	entry.LastError = message
	entry.LastRunAt = now
	entry.LastDuration = max(d, 0)
	entry.TotalRuns++
	if result == "success" {
		entry.ConsecutiveFailures = 0
		entry.ConsecutiveSuccess++
		entry.LastSuccessAt = now
	} else {
		entry.ConsecutiveSuccess = 0
		entry.ConsecutiveFailures++
	}
}

// maintenanceJobs copies every job entry, ordered by name.
func (s *statStore) maintenanceJobs() []MaintenanceJobSummary {
	s.mu.Lock()
	out := make([]MaintenanceJobSummary, 0, len(s.jobs))
	for _, entry := range s.jobs {
		out = append(out, *entry)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

func (s *statStore) summary() Summary {
	hits, generated := s.hits.Load(), s.generated.Load()

	images := ImageSummary{
		CacheHits:    hits,
		Generated:    generated,
		Rejected:     s.rejected.Load(),
		Failed:       s.failed.Load(),
		LastServedAt: fromUnixNano(s.lastImage.Load()),
	}
	if generated > 0 {
		images.AverageGenerationSeconds = time.Duration(s.generationTotal.Load() / int64(generated)).Seconds()
	}
	if served := hits + generated; served > 0 {
		images.CacheHitRatio = float64(hits) / float64(served)
	}

	return Summary{
		GeneratedAt: time.Now(),
		Images:      images,
		Prompts: PromptSummary{
			Success:     s.promptOK.Load(),
			Failure:     s.promptFailed.Load(),
			LastCount:   s.promptCount.Load(),
			LastFetchAt: fromUnixNano(s.lastPrompt.Load()),
		},
		Maintenance: MaintenanceSummary{Jobs: s.maintenanceJobs()},
	}
}

func fromUnixNano(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
