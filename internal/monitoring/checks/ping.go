package checks

import (
	"context"
	"time"

	"github.com/charlesng35/promptgallery/internal/monitoring"
)

const defaultPingTimeout = 2 * time.Second

// Pinger represents the minimal interface required to probe a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// ping bounds one round trip by timeout and labels a healthy result with label.
func ping(ctx context.Context, name, label string, p Pinger, timeout time.Duration) monitoring.ProbeResult {
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	result := monitoring.ResultFromError(name, p.Ping(ctx), time.Since(start))
	if result.Status == monitoring.StatusUp {
		result.Details = label
	}
	return result
}
