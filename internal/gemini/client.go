package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charlesng35/promptgallery/pkg/metrics"
)

// API selects the endpoint used for generation.
type API string

const (
	// APIGenerateImages posts {"prompt":{"text":...}} to :generateImages.
	APIGenerateImages API = "generate_images"
	// APIGenerateContent posts a contents/parts request asking for IMAGE output to :generateContent.
	APIGenerateContent API = "generate_content"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-1.5-flash"

	defaultTimeout = 60 * time.Second
	upstreamName   = "gemini"
)

// Config holds connection settings for the Gemini API.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	API        API
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls a Gemini image model and extracts the generated image.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	api     API
	http    *http.Client
}

// Result is a generated image as returned by the API.
type Result struct {
	Base64 string
	Kind   EnvelopeKind
}

// NewClient builds a client with defaults for base URL, model, API and timeout.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	api := cfg.API
	if api == "" {
		api = APIGenerateImages
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
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		api:     api,
		http:    client,
	}
}

// Generate asks the model for one image for prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	res, err := c.generate(ctx, prompt)
	metrics.ObserveUpstream(upstreamName, time.Since(start).Seconds(), err)
	return res, err
}

func (c *Client) generate(ctx context.Context, prompt string) (*Result, error) {
	method, body, err := c.requestBody(prompt)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:%s?key=%s",
		c.baseURL, url.PathEscape(c.model), method, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: redactKey(err, c.apiKey)}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &NonJSONError{StatusCode: resp.StatusCode, Raw: string(raw)}
	}

	var envelope Envelope
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, &NoImageError{StatusCode: resp.StatusCode, Response: decoded}
		}
		if payload, kind, ok := envelope.Extract(); ok {
			return &Result{Base64: payload, Kind: kind}, nil
		}
	}

	return nil, &NoImageError{StatusCode: resp.StatusCode, Response: decoded}
}

func (c *Client) requestBody(prompt string) (string, []byte, error) {
	switch c.api {
	case APIGenerateImages:
		body, err := json.Marshal(generateImagesRequest{Prompt: textPrompt{Text: prompt}})
		return "generateImages", body, err
	case APIGenerateContent:
		body, err := json.Marshal(generateContentRequest{
			Contents:         []Content{{Role: "user", Parts: []Part{{Text: prompt}}}},
			GenerationConfig: generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
		})
		return "generateContent", body, err
	default:
		return "", nil, fmt.Errorf("gemini: unsupported api %q", c.api)
	}
}

type textPrompt struct {
	Text string `json:"text"`
}

type generateImagesRequest struct {
	Prompt textPrompt `json:"prompt"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities"`
}

type generateContentRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

// redactKey strips the API key from transport errors, which echo the request URL.
func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(key), "REDACTED")
	msg = strings.ReplaceAll(msg, key, "REDACTED")
	if msg == err.Error() {
		return err
	}
	return errors.New(msg)
}
