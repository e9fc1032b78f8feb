package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/charlesng35/promptgallery/pkg/errors"
	"github.com/charlesng35/promptgallery/pkg/logger"
	"github.com/charlesng35/promptgallery/pkg/response"
)

const defaultLimiterIdle = 10 * time.Minute

// RateLimiter hands out one token bucket per client IP. Buckets idle for longer than
// the idle window are dropped on the next sweep.
type RateLimiter struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a limiter allowing requestsPerSecond with the given burst per client.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst <= 0 {
		burst = int(math.Max(1, math.Ceil(requestsPerSecond)))
	}
	return &RateLimiter{
		limit:   rate.Limit(requestsPerSecond),
		burst:   burst,
		idle:    defaultLimiterIdle,
		now:     time.Now,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow reports whether the client may proceed now.
func (l *RateLimiter) Allow(client string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweepLocked(now)

	entry, ok := l.clients[client]
	if !ok {
		entry = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

func (l *RateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	for key, entry := range l.clients {
		if now.Sub(entry.lastSeen) > l.idle {
			delete(l.clients, key)
		}
	}
	l.lastSweep = now
}

// Middleware rejects clients that exceed their bucket with 429.
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		client := c.ClientIP()
		if l.Allow(client) {
			c.Next()
			return
		}

		logger.WithModule("http").Warn("rate limit exceeded",
			zap.String("client_ip", client),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(CtxRequestIDKey)),
		)
		if l.limit > 0 {
			retry := int(math.Ceil(1 / float64(l.limit)))
			c.Header("Retry-After", strconv.Itoa(retry))
		}
		response.Error(c, errors.ErrRateLimit)
	}
}

// RateLimit returns per-client rate limiting middleware. A non-positive rate disables it.
func RateLimit(requestsPerSecond float64, burst int) gin.HandlerFunc {
	if requestsPerSecond <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return NewRateLimiter(requestsPerSecond, burst).Middleware()
}
