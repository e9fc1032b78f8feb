package cache

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RedisConfig captures the minimal connection parameters required by the lightweight Redis client.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
	// KeyPrefix is prepended verbatim to every key. Empty by default so keys match
	// what REST-backed deployments write.
	KeyPrefix string
}

const defaultRedisTimeout = 5 * time.Second

// RedisClient speaks RESP directly to a Redis server for deployments that can reach one
// without the REST gateway. It keeps a single connection guarded by a mutex and
// reconnects lazily after any I/O failure.
type RedisClient struct {
	cfg RedisConfig

	mu   sync.Mutex
	conn net.Conn
	rw   *bufio.ReadWriter
}

// NewRedisClient creates a new Redis client. It eagerly establishes the connection so that
// misconfiguration is surfaced during start-up.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*RedisClient, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	client := &RedisClient{cfg: cfg}

	client.mu.Lock()
	defer client.mu.Unlock()
	if err := client.connectLocked(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// Close closes the underlying network connection.
func (c *RedisClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn, c.rw = nil, nil
	return err
}

// Get retrieves the value associated with a key.
func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, bool, error) {
	reply, err := c.call(ctx, "GET", c.key(key))
	if err != nil {
		return nil, false, err
	}

	switch v := reply.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return v, true, nil
	default:
		return nil, false, fmt.Errorf("redis: GET returned %T", v)
	}
}

// Set stores a value, with PX expiry when ttl is positive.
func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := []string{"SET", c.key(key), string(value)}
	if ttl > 0 {
		args = append(args, "PX", strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	return c.expectOK(ctx, args...)
}

// IncrementWithTTL increments the counter and sets the window as expiry when the
// counter was created by this call.
func (c *RedisClient) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, error) {
	prefixed := c.key(key)
	count, err := c.callInt(ctx, "INCR", prefixed)
	if err != nil {
		return 0, err
	}
	if count == 1 && window > 0 {
		if _, err := c.callInt(ctx, "PEXPIRE", prefixed, strconv.FormatInt(window.Milliseconds(), 10)); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Delete removes one or more keys, ignoring missing keys.
func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	args := make([]string, 0, len(keys)+1)
	args = append(args, "DEL")
	for _, key := range keys {
		args = append(args, c.key(key))
	}
	_, err := c.callInt(ctx, args...)
	return err
}

// Ping checks the connection with a PING round trip.
func (c *RedisClient) Ping(ctx context.Context) error {
	reply, err := c.call(ctx, "PING")
	if err != nil {
		return err
	}
	if s, ok := reply.(string); !ok || !strings.EqualFold(s, "PONG") {
		return fmt.Errorf("redis: unexpected PING reply %v", reply)
	}
	return nil
}

func (c *RedisClient) key(key string) string {
	return c.cfg.KeyPrefix + key
}

func (c *RedisClient) expectOK(ctx context.Context, args ...string) error {
	reply, err := c.call(ctx, args...)
	if err != nil {
		return err
	}
	if s, ok := reply.(string); !ok || !strings.EqualFold(s, "OK") {
		return fmt.Errorf("redis: %s returned %v", args[0], reply)
	}
	return nil
}

func (c *RedisClient) callInt(ctx context.Context, args ...string) (int64, error) {
	reply, err := c.call(ctx, args...)
	if err != nil {
		return 0, err
	}
	n, ok := reply.(int64)
	if !ok {
		return 0, fmt.Errorf("redis: %s returned %T, want integer", args[0], reply)
	}
	return n, nil
}

func (c *RedisClient) call(ctx context.Context, args ...string) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	reply, err := c.roundTripLocked(ctx, args)
	var serverErr redisError
	if err != nil && !errors.As(err, &serverErr) {
		c.resetLocked()
	}
	return reply, err
}

func (c *RedisClient) roundTripLocked(ctx context.Context, args []string) (any, error) {
	if err := c.conn.SetDeadline(deadlineFor(ctx, c.cfg.Timeout)); err != nil {
		return nil, err
	}
	if err := writeRESP(c.rw.Writer, args); err != nil {
		return nil, err
	}
	return readRESP(c.rw.Reader)
}

func (c *RedisClient) connectLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var (
		conn net.Conn
		err  error
	)
	if c.cfg.TLS {
		conn, err = (&tls.Dialer{NetDialer: &net.Dialer{}}).DialContext(dialCtx, "tcp", c.cfg.Address)
	} else {
		conn, err = (&net.Dialer{}).DialContext(dialCtx, "tcp", c.cfg.Address)
	}
	if err != nil {
		return err
	}

	c.conn = conn
	c.rw = bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))

	var handshake [][]string
	switch {
	case c.cfg.Username != "":
		handshake = append(handshake, []string{"AUTH", c.cfg.Username, c.cfg.Password})
	case c.cfg.Password != "":
		handshake = append(handshake, []string{"AUTH", c.cfg.Password})
	}
	if c.cfg.DB > 0 {
		handshake = append(handshake, []string{"SELECT", strconv.Itoa(c.cfg.DB)})
	}

	for _, cmd := range handshake {
		reply, err := c.roundTripLocked(dialCtx, cmd)
		if err == nil {
			if s, ok := reply.(string); !ok || !strings.EqualFold(s, "OK") {
				err = fmt.Errorf("unexpected reply %v", reply)
			}
		}
		if err != nil {
			c.resetLocked()
			return fmt.Errorf("redis: %s failed: %w", cmd[0], err)
		}
	}
	return nil
}

func (c *RedisClient) resetLocked() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn, c.rw = nil, nil
}

func deadlineFor(ctx context.Context, fallback time.Duration) time.Time {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline
	}
	return time.Now().Add(fallback)
}
