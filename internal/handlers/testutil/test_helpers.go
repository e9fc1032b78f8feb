package testutil

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/promptgallery/internal/api"
	"github.com/charlesng35/promptgallery/internal/app"
	"github.com/charlesng35/promptgallery/internal/cache"
	"github.com/charlesng35/promptgallery/internal/gemini"
	"github.com/charlesng35/promptgallery/internal/imagegen"
	"github.com/charlesng35/promptgallery/internal/monitoring"
	"github.com/charlesng35/promptgallery/internal/notion"
	"github.com/charlesng35/promptgallery/internal/prompts"
)

// PNG is the payload every fake generation returns.
var PNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Env encapsulates a fully-wired API instance backed by an in-memory cache and fake upstreams.
type Env struct {
	T          *testing.T
	Config     *app.Config
	Store      *cache.MemoryStore
	Source     *FakeSource
	Monitoring *monitoring.Module
	Router     *gin.Engine
}

// Option adjusts the configuration before the router is built.
type Option func(*app.Config)

// NewEnv provisions a fresh router with quotas enabled and health and metrics routes on.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	cfg := &app.Config{
		Server: app.ServerConfig{
			CORS: app.CORSConfig{AllowedOrigins: []string{"*"}},
		},
		Image: app.ImageConfig{
			Quota: app.QuotaConfig{Enabled: true, Limit: 50},
		},
		Cache: app.CacheConfig{Driver: app.CacheDriverMemory},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	module, err := monitoring.NewModule(monitoring.Options{DisableGoCollector: true, DisableProcessCollector: true})
	require.NoError(t, err)
	monitoring.SetModule(module)

	store := cache.NewMemoryStore()
	source := &FakeSource{Payload: base64.StdEncoding.EncodeToString(PNG)}

	genOpts := imagegen.DefaultOptions()
	genOpts.QuotaEnabled = cfg.Image.Quota.Enabled
	genOpts.DailyLimit = cfg.Image.Quota.Limit

	service := prompts.NewService(FakeNotion{}, prompts.Options{DatabaseID: "db", Token: "secret"})

	router, err := api.NewRouter(api.Dependencies{
		Config:     cfg,
		Prompts:    service,
		Images:     imagegen.NewGenerator(source, store, genOpts),
		Monitoring: module,
	})
	require.NoError(t, err)

	return &Env{
		T:          t,
		Config:     cfg,
		Store:      store,
		Source:     source,
		Monitoring: module,
		Router:     router,
	}
}

// Request executes an HTTP request against the test router.
func (e *Env) Request(method, path string, headers map[string]string) *httptest.ResponseRecorder {
	e.T.Helper()

	req, err := http.NewRequest(method, path, nil)
	require.NoError(e.T, err)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// FakeSource returns a fixed base64 payload and counts calls.
type FakeSource struct {
	Payload string
	Calls   atomic.Int32
}

// Generate implements imagegen.Source.
func (s *FakeSource) Generate(context.Context, string) (*gemini.Result, error) {
	s.Calls.Add(1)
	return &gemini.Result{Base64: s.Payload, Kind: gemini.EnvelopeImages}, nil
}

// FakeNotion answers every query with a single prompt page.
type FakeNotion struct{}

// QueryDatabase implements prompts.Querier.
func (FakeNotion) QueryDatabase(context.Context, string, notion.QueryRequest) (*notion.QueryResponse, error) {
	return &notion.QueryResponse{
		Object: "list",
		Results: []notion.Page{{
			ID: "page-1",
			Properties: map[string]notion.Property{
				prompts.PropertyTitle:  {Type: "title", Title: []notion.RichText{{PlainText: "Fox"}}},
				prompts.PropertyPrompt: {Type: "rich_text", RichText: []notion.RichText{{PlainText: "a red fox"}}},
			},
		}},
	}, nil
}
