package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// KVRestConfig captures the connection parameters of a Redis-compatible REST endpoint
// (the KV_REST_API_URL / KV_REST_API_TOKEN pair).
type KVRestConfig struct {
	URL     string
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the default client, primarily for tests.
	HTTPClient *http.Client
}

const defaultKVRestTimeout = 5 * time.Second

// KVRestStore implements Store over the KV REST protocol:
// GET /get/:key, POST /set/:key, GET /incr/:key, GET /expire/:key/:seconds, GET /del/:key.
type KVRestStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// kvResult is the envelope every KV REST command answers with.
type kvResult struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// NewKVRestStore builds a REST-backed store. Both URL and token are required.
func NewKVRestStore(cfg KVRestConfig) (*KVRestStore, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	token := strings.TrimSpace(cfg.Token)
	if base == "" || token == "" {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("kvrest: invalid url: %w", err)
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultKVRestTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &KVRestStore{baseURL: base, token: token, client: client}, nil
}

// Get retrieves the value associated with a key. A null result is a miss.
func (s *KVRestStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := s.do(ctx, http.MethodGet, nil, "get", key)
	if err != nil {
		return nil, false, err
	}
	if isNull(raw) {
		return nil, false, nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("kvrest: unexpected get result: %w", err)
	}
	return []byte(value), true, nil
}

// Set stores the value, then applies the expiry as a separate command when ttl > 0.
func (s *KVRestStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := s.do(ctx, http.MethodPost, value, "set", key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}
	return s.expire(ctx, key, ttl)
}

// IncrementWithTTL issues INCR and, for a freshly created counter, EXPIRE.
func (s *KVRestStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, error) {
	raw, err := s.do(ctx, http.MethodGet, nil, "incr", key)
	if err != nil {
		return 0, err
	}

	count, err := parseInt(raw)
	if err != nil {
		return 0, fmt.Errorf("kvrest: unexpected incr result: %w", err)
	}

	if count == 1 && window > 0 {
		if err := s.expire(ctx, key, window); err != nil {
			return count, err
		}
	}
	return count, nil
}

// Delete removes one or more keys, ignoring missing keys.
func (s *KVRestStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.do(ctx, http.MethodGet, nil, append([]string{"del"}, keys...)...)
	return err
}

// Ping verifies the endpoint answers authenticated commands.
func (s *KVRestStore) Ping(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodGet, nil, "ping")
	return err
}

func (s *KVRestStore) expire(ctx context.Context, key string, ttl time.Duration) error {
	seconds := int64(ttl / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	_, err := s.do(ctx, http.MethodGet, nil, "expire", key, strconv.FormatInt(seconds, 10))
	return err
}

func (s *KVRestStore) do(ctx context.Context, method string, body []byte, segments ...string) (json.RawMessage, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	escaped := make([]string, len(segments))
	for i, segment := range segments {
		escaped[i] = url.PathEscape(segment)
	}
	endpoint := s.baseURL + "/" + strings.Join(escaped, "/")

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if body != nil {
		req.Header.Set("Content-Type", "text/plain")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kvrest: %s: %w", segments[0], err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kvrest: read %s response: %w", segments[0], err)
	}

	var result kvResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("kvrest: %s returned status %d with non-JSON body", segments[0], resp.StatusCode)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("kvrest: %s: %s", segments[0], result.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("kvrest: %s returned status %d", segments[0], resp.StatusCode)
	}
	return result.Result, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// parseInt accepts both numeric and string encodings of an integer result.
func parseInt(raw json.RawMessage) (int64, error) {
	if isNull(raw) {
		return 0, errors.New("null result")
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}
