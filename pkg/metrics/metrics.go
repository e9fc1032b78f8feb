package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the cache and upstream collectors. It is served alongside the
// monitoring module's registry.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// ImageCacheLookups counts image cache lookups by result (hit|miss|error).
	ImageCacheLookups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgallery_image_cache_lookups_total",
			Help: "Total number of image cache lookups",
		},
		[]string{"result"},
	)

	// ImageCacheWrites counts cache write-backs by result (success|error).
	ImageCacheWrites = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgallery_image_cache_writes_total",
			Help: "Total number of image cache writes",
		},
		[]string{"result"},
	)

	// QuotaRejections counts requests refused because the daily generation quota was reached.
	QuotaRejections = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "promptgallery_quota_rejections_total",
			Help: "Total number of image requests rejected by the daily quota",
		},
	)

	// UpstreamRequests counts outbound calls by upstream (notion|gemini) and result (success|failure).
	UpstreamRequests = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promptgallery_upstream_requests_total",
			Help: "Total number of upstream API calls",
		},
		[]string{"upstream", "result"},
	)

	// UpstreamLatency measures outbound call latency.
	UpstreamLatency = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promptgallery_upstream_latency_seconds",
			Help:    "Upstream API latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"upstream"},
	)
)

// ObserveUpstream records the outcome and duration of one outbound call.
func ObserveUpstream(upstream string, seconds float64, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	UpstreamRequests.WithLabelValues(upstream, result).Inc()
	UpstreamLatency.WithLabelValues(upstream).Observe(seconds)
}
