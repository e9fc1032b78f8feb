package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ProbeStatus encodes the outcome of a health probe.
type ProbeStatus string

const (
	StatusUp       ProbeStatus = "up"
	StatusDegraded ProbeStatus = "degraded"
	StatusDown     ProbeStatus = "down"
)

func (s ProbeStatus) severity() int {
	switch s {
	case StatusUp:
		return 0
	case StatusDegraded:
		return 1
	default:
		return 2
	}
}

// Worse returns whichever of a and b is more severe. Unknown statuses count as down.
func Worse(a, b ProbeStatus) ProbeStatus {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// ProbeResult captures a single dependency check outcome.
type ProbeResult struct {
	Component string        `json:"component"`
	Status    ProbeStatus   `json:"status"`
	Details   string        `json:"details,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// HealthReport is the aggregate of one evaluation. Success holds only when every probe is up.
type HealthReport struct {
	Success bool          `json:"success"`
	Status  ProbeStatus   `json:"status"`
	Checks  []ProbeResult `json:"checks"`
}

// Check is a named probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) ProbeResult
}

// NewCheck wraps fn as a probe. A nil fn always reports down.
func NewCheck(name string, fn func(ctx context.Context) ProbeResult) Check {
	if fn == nil {
		fn = func(context.Context) ProbeResult {
			return ProbeResult{Status: StatusDown, Details: "probe not implemented"}
		}
	}
	return Check{Name: name, Run: fn}
}

// HealthManager holds the liveness and readiness probes. Probes may be registered while
// evaluations are running.
type HealthManager struct {
	mu        sync.RWMutex
	liveness  []Check
	readiness []Check
}

// NewHealthManager constructs an empty health manager.
func NewHealthManager() *HealthManager {
	return &HealthManager{}
}

// RegisterLiveness adds a probe answering "is the process working". Unnamed checks are ignored.
func (m *HealthManager) RegisterLiveness(check Check) {
	m.register(&m.liveness, check)
}

// RegisterReadiness adds a probe answering "can requests be served". Unnamed checks are ignored.
func (m *HealthManager) RegisterReadiness(check Check) {
	m.register(&m.readiness, check)
}

// EvaluateLiveness runs the liveness probes in registration order.
func (m *HealthManager) EvaluateLiveness(ctx context.Context) HealthReport {
	return evaluate(ctx, m.snapshot(&m.liveness))
}

// EvaluateReadiness runs the readiness probes in registration order.
func (m *HealthManager) EvaluateReadiness(ctx context.Context) HealthReport {
	return evaluate(ctx, m.snapshot(&m.readiness))
}

func (m *HealthManager) register(list *[]Check, check Check) {
	if check.Name == "" || check.Run == nil {
		return
	}
	m.mu.Lock()
	*list = append(*list, check)
	m.mu.Unlock()
}

func (m *HealthManager) snapshot(list *[]Check) []Check {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Check(nil), (*list)...)
}

func evaluate(ctx context.Context, checks []Check) HealthReport {
	if ctx == nil {
		ctx = context.Background()
	}

	report := HealthReport{Status: StatusUp, Checks: make([]ProbeResult, 0, len(checks))}
	for _, check := range checks {
		result := runCheck(ctx, check)
		report.Status = Worse(report.Status, result.Status)
		report.Checks = append(report.Checks, result)
	}
	report.Success = report.Status == StatusUp
	return report
}

// runCheck executes one probe. A panic becomes a down result carrying the panic value.
func runCheck(ctx context.Context, check Check) (result ProbeResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			result = ProbeResult{Status: StatusDown, Details: fmt.Sprint(rec)}
		}
		result.Component = check.Name
		if result.Status == "" {
			result.Status = StatusDown
		}
		if result.Duration == 0 {
			result.Duration = time.Since(start)
		}
	}()
	return check.Run(ctx)
}

// ResultFromError maps a probe error to a result: nil is up, a timeout or cancellation is
// degraded, anything else is down.
func ResultFromError(component string, err error, duration time.Duration) ProbeResult {
	result := ProbeResult{Component: component, Status: StatusUp, Duration: max(duration, 0)}
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		result.Status, result.Details = StatusDegraded, err.Error()
	default:
		result.Status, result.Details = StatusDown, err.Error()
	}
	return result
}
