package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type collectors struct {
	apiLatency          *prometheus.HistogramVec
	imageRequests       *prometheus.CounterVec
	imageLatency        *prometheus.HistogramVec
	promptFetches       *prometheus.CounterVec
	promptRecords       prometheus.Gauge
	maintenanceRuns     *prometheus.CounterVec
	maintenanceDuration *prometheus.HistogramVec
	maintenanceLastRun  *prometheus.GaugeVec
}

func newCollectors(namespace string) *collectors {
	buckets := prometheus.DefBuckets
	generationBuckets := []float64{0.01, 0.05, 0.25, 1, 2.5, 5, 10, 20, 40, 60}

	return &collectors{
		apiLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_latency_seconds",
				Help:      "HTTP latency by gin route pattern",
				Buckets:   buckets,
			},
			[]string{"method", "route", "status"},
		),
		imageRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "image_requests_total",
				Help:      "Image requests by outcome (hit, generated, rejected, failed)",
			},
			[]string{"result"},
		),
		imageLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "image_request_duration_seconds",
				Help:      "Time to serve an image grouped by outcome",
				Buckets:   generationBuckets,
			},
			[]string{"result"},
		),
		promptFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "prompt_fetches_total",
				Help:      "Prompt list fetches by result",
			},
			[]string{"result"},
		),
		promptRecords: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "prompt_records",
				Help:      "Number of prompt records returned by the last successful fetch",
			},
		),
		maintenanceRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "maintenance_runs_total",
				Help:      "Maintenance job executions",
			},
			[]string{"job", "result"},
		),
		maintenanceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "maintenance_duration_seconds",
				Help:      "Maintenance job duration",
				Buckets:   buckets,
			},
			[]string{"job"},
		),
		maintenanceLastRun: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "maintenance_last_success_timestamp",
				Help:      "Timestamp of the last successful maintenance run (seconds since epoch)",
			},
			[]string{"job"},
		),
	}
}

func (c *collectors) all() []prometheus.Collector {
	return []prometheus.Collector{
		c.apiLatency,
		c.imageRequests,
		c.imageLatency,
		c.promptFetches,
		c.promptRecords,
		c.maintenanceRuns,
		c.maintenanceDuration,
		c.maintenanceLastRun,
	}
}

// observeDuration records a duration in seconds on the supplied histogram observer.
func observeDuration(observer prometheus.Observer, d time.Duration) {
	if observer == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	observer.Observe(d.Seconds())
}
