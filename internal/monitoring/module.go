package monitoring

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	promcollectors "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/charlesng35/promptgallery/pkg/metrics"
)

const defaultNamespace = "promptgallery"

// Options tune which collectors a Module registers.
type Options struct {
	Namespace               string
	DisableGoCollector      bool
	DisableProcessCollector bool
}

// runtimeCollectors lists the Go and process collectors that opts leave enabled.
func (o Options) runtimeCollectors() []prometheus.Collector {
	var out []prometheus.Collector
	if !o.DisableGoCollector {
		out = append(out, promcollectors.NewGoCollector())
	}
	if !o.DisableProcessCollector {
		out = append(out, promcollectors.NewProcessCollector(promcollectors.ProcessCollectorOpts{}))
	}
	return out
}

// Module owns the gallery's request collectors, the summary stats and the
// health registry. Each module has a private Prometheus registry so tests can
// build as many as they like.
type Module struct {
	registry *prometheus.Registry
	metrics  *collectors
	stats    *statStore
	health   *HealthManager
}

func NewModule(opts Options) (*Module, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}

	m := &Module{
		registry: prometheus.NewRegistry(),
		metrics:  newCollectors(namespace),
		stats:    newStatStore(),
		health:   NewHealthManager(),
	}

	all := append(opts.runtimeCollectors(), m.metrics.all()...)
	for _, c := range all {
		if err := m.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return m, nil
}

// Handler serves the module registry merged with the cache and upstream
// counters from pkg/metrics.
func (m *Module) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(
		prometheus.Gatherers{m.registry, metrics.Registry},
		promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError},
	)
}

func (m *Module) Health() *HealthManager {
	if m == nil {
		return nil
	}
	return m.health
}

var current atomic.Pointer[Module]

// SetModule installs the module the package-level Record* helpers write to.
// A nil module is ignored.
func SetModule(m *Module) {
	if m != nil {
		current.Store(m)
	}
}

// CurrentModule returns the installed module, or nil.
func CurrentModule() *Module {
	return current.Load()
}

func ensureModule() *Module {
	return current.Load()
}
