package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charlesng35/promptgallery/pkg/metrics"
)

const (
	DefaultBaseURL = "https://api.notion.com/v1"
	DefaultVersion = "2022-06-28"

	defaultTimeout = 15 * time.Second
	upstreamName   = "notion"
)

// Config holds connection settings for the Notion REST API.
type Config struct {
	BaseURL    string
	Token      string
	Version    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client issues authenticated requests against the Notion REST API.
type Client struct {
	baseURL string
	token   string
	version string
	http    *http.Client
}

// StatusError is returned when Notion answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("notion: status %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// NewClient builds a client, filling defaults for the base URL, version and timeout.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	version := strings.TrimSpace(cfg.Version)
	if version == "" {
		version = DefaultVersion
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: base,
		token:   strings.TrimSpace(cfg.Token),
		version: version,
		http:    client,
	}
}

// QueryDatabase fetches one page of rows from the database.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*QueryResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/databases/%s/query", c.baseURL, url.PathEscape(databaseID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Notion-Version", c.version)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	out, err := c.send(httpReq)
	metrics.ObserveUpstream(upstreamName, time.Since(start).Seconds(), err)
	return out, err
}

func (c *Client) send(req *http.Request) (*QueryResponse, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion: query database: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("notion: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var body errorBody
		if json.Unmarshal(payload, &body) == nil {
			statusErr.Code = body.Code
			statusErr.Message = body.Message
		}
		return nil, statusErr
	}

	var out QueryResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("notion: decode response: %w", err)
	}
	return &out, nil
}
