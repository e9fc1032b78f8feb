package server

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/promptgallery/internal/api"
	"github.com/charlesng35/promptgallery/internal/app"
	"github.com/charlesng35/promptgallery/internal/app/maintenance"
	"github.com/charlesng35/promptgallery/internal/cache"
	"github.com/charlesng35/promptgallery/internal/database"
	"github.com/charlesng35/promptgallery/internal/gemini"
	"github.com/charlesng35/promptgallery/internal/imagegen"
	"github.com/charlesng35/promptgallery/internal/monitoring"
	"github.com/charlesng35/promptgallery/internal/monitoring/checks"
	"github.com/charlesng35/promptgallery/internal/notion"
	"github.com/charlesng35/promptgallery/internal/prompts"
	"github.com/charlesng35/promptgallery/pkg/logger"
)

// Stack bundles long-lived services used by the HTTP server and the Lambda entry points.
type Stack struct {
	Config     *app.Config
	DB         *gorm.DB
	Store      cache.Store
	Redis      *cache.RedisClient
	Cleaner    *maintenance.Cleaner
	Monitoring *monitoring.Module
	Prompts    *prompts.Service
	Images     *imagegen.Generator
	Router     *gin.Engine
}

// Bootstrap initialises the cache backend, upstream clients, monitoring and the HTTP router.
// Missing credentials do not fail start-up; the affected endpoint reports them per request.
func Bootstrap(ctx context.Context, cfg *app.Config) (*Stack, error) {
	if cfg == nil {
		return nil, errors.New("server: config is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	log := logger.WithModule("bootstrap")
	stack := &Stack{Config: cfg}
	success := false

	defer func() {
		if !success {
			if err := stack.Shutdown(context.Background()); err != nil {
				log.Warn("partial bootstrap cleanup failed", zap.Error(err))
			}
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	var err error
	if stack.Monitoring, err = monitoring.NewModule(monitoring.Options{}); err != nil {
		return nil, fmt.Errorf("initialise monitoring: %w", err)
	}
	monitoring.SetModule(stack.Monitoring)

	if err := stack.openCache(ctx, log); err != nil {
		return nil, err
	}

	if stack.Cleaner != nil {
		if err := stack.Cleaner.Start(); err != nil {
			return nil, fmt.Errorf("start maintenance jobs: %w", err)
		}
	}

	stack.Prompts = newPromptService(cfg)
	stack.Images = newImageGenerator(cfg, stack.Store)
	stack.registerHealthChecks()

	deps := api.Dependencies{
		Config:     cfg,
		Prompts:    stack.Prompts,
		Monitoring: stack.Monitoring,
	}
	if stack.Images != nil {
		deps.Images = stack.Images
	}

	if stack.Router, err = api.NewRouter(deps); err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	logMissingCredentials(cfg, stack.Store, log)

	success = true
	return stack, nil
}

// Shutdown stops background jobs and releases connections, joining every failure.
func (s *Stack) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
			errs = multierr.Append(errs, fmt.Errorf("maintenance stop: %w", ctx.Err()))
		}
		s.Cleaner = nil
	}

	if s.Redis != nil {
		errs = multierr.Append(errs, s.Redis.Close())
		s.Redis = nil
	}

	if s.DB != nil {
		errs = multierr.Append(errs, database.Close(s.DB))
		s.DB = nil
	}

	return errs
}

func (s *Stack) openCache(ctx context.Context, log *zap.Logger) error {
	cfg := s.Config

	switch cfg.Cache.Driver {
	case app.CacheDriverKVRest, "":
		store, err := cache.NewKVRestStore(cfg.Cache.KVRestClientConfig())
		switch {
		case errors.Is(err, cache.ErrNotConfigured):
			return nil
		case err != nil:
			return fmt.Errorf("initialise kv rest cache: %w", err)
		}
		s.Store = store

	case app.CacheDriverRedis:
		client, err := cache.NewRedisClient(ctx, cfg.Cache.RedisClientConfig())
		if err != nil {
			log.Warn("redis unavailable; image generation disabled", zap.Error(err))
			return nil
		}
		s.Redis = client
		s.Store = client
		log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))

	case app.CacheDriverDatabase:
		dbCfg := cfg.Database.ClientConfig()
		db, err := database.Open(dbCfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		s.DB = db
		if err := database.Prepare(db); err != nil {
			return err
		}
		dbStore := cache.NewDatabaseStore(db)
		s.Store = dbStore
		log.Info("database connected", zap.String("driver", dbCfg.Driver))

		if cfg.Maintenance.CachePurge.Enabled {
			s.Cleaner = maintenance.NewCleaner(dbStore,
				maintenance.WithPurgeSchedule(cfg.Maintenance.CachePurge.Schedule),
			)
		}

	case app.CacheDriverMemory:
		s.Store = cache.NewMemoryStore()

	default:
		return fmt.Errorf("unsupported cache driver %q", cfg.Cache.Driver)
	}

	return nil
}

func (s *Stack) registerHealthChecks() {
	health := s.Monitoring.Health()
	cfg := s.Config

	health.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))

	var pinger checks.Pinger
	if s.Store != nil {
		pinger = s.Store
	}
	health.RegisterReadiness(checks.Cache(cfg.Cache.Driver, pinger, cfg.Cache.Timeout))

	if s.DB != nil {
		health.RegisterReadiness(checks.Database(s.DB, 0))
	}
	if s.Cleaner.Enabled() {
		// Allow one missed run before reporting the purge as stale.
		health.RegisterReadiness(checks.Maintenance(maintenance.JobCachePurge, 2*s.Cleaner.Interval()))
	}
}

func newPromptService(cfg *app.Config) *prompts.Service {
	client := notion.NewClient(notion.Config{
		BaseURL: cfg.Notion.BaseURL,
		Token:   cfg.Notion.Token,
		Version: cfg.Notion.Version,
		Timeout: cfg.Notion.Timeout,
	})
	return prompts.NewService(client, prompts.Options{
		DatabaseID:       cfg.Notion.DatabaseID,
		Token:            cfg.Notion.Token,
		PageSize:         cfg.Notion.PageSize,
		FollowPagination: cfg.Notion.FollowPagination,
		MaxPages:         cfg.Notion.MaxPages,
	})
}

func newImageGenerator(cfg *app.Config, store cache.Store) *imagegen.Generator {
	var source imagegen.Source
	if cfg.Gemini.APIKey != "" {
		source = gemini.NewClient(gemini.Config{
			BaseURL: cfg.Gemini.BaseURL,
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			API:     gemini.API(cfg.Gemini.API),
			Timeout: cfg.Gemini.Timeout,
		})
	}

	opts := imagegen.DefaultOptions()
	opts.QuotaEnabled = cfg.Image.Quota.Enabled
	opts.AtomicQuota = cfg.Image.Quota.Atomic
	if cfg.Image.CacheTTL > 0 {
		opts.CacheTTL = cfg.Image.CacheTTL
	}
	if cfg.Image.Quota.Limit > 0 {
		opts.DailyLimit = cfg.Image.Quota.Limit
	}
	if cfg.Image.Quota.KeyPrefix != "" {
		opts.QuotaKeyPrefix = cfg.Image.Quota.KeyPrefix
	}
	if cfg.Image.Quota.Window > 0 {
		opts.QuotaWindow = cfg.Image.Quota.Window
	}

	return imagegen.NewGenerator(source, store, opts)
}

func logMissingCredentials(cfg *app.Config, store cache.Store, log *zap.Logger) {
	if cfg.Notion.Token == "" || cfg.Notion.DatabaseID == "" {
		log.Warn("notion credentials missing; /api/prompts will fail")
	}
	if cfg.Gemini.APIKey == "" {
		log.Warn("gemini api key missing; /api/image will fail")
	}
	if store == nil {
		log.Warn("cache store unavailable; /api/image will fail", zap.String("driver", cfg.Cache.Driver))
	}
}
