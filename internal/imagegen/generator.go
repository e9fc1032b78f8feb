package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/charlesng35/promptgallery/internal/cache"
	"github.com/charlesng35/promptgallery/internal/gemini"
	appErrors "github.com/charlesng35/promptgallery/pkg/errors"
	"github.com/charlesng35/promptgallery/pkg/logger"
	"github.com/charlesng35/promptgallery/pkg/metrics"
)

const (
	DefaultCacheTTL   = 90 * 24 * time.Hour
	DefaultDailyLimit = 50
	DefaultQuotaTTL   = 24 * time.Hour
)

// Client-facing messages.
const (
	MsgMissingPrompt = "Missing prompt parameter"
	MsgMissingAPIKey = "Missing GEMINI_API_KEY"
	MsgMissingKV     = "Missing KV configuration"
	MsgNonJSON       = "Gemini returned NON-JSON response"
	MsgNoImage       = "Gemini didn’t return an image"
	MsgServiceFailed = "Image service failed (detailed)"
)

// Source produces base64 images for prompts. *gemini.Client satisfies it.
type Source interface {
	Generate(ctx context.Context, prompt string) (*gemini.Result, error)
}

// Options parameterises the generator.
type Options struct {
	// CacheTTL applies to stored images. Zero keeps them until evicted.
	CacheTTL time.Duration
	// QuotaEnabled gates upstream calls behind a per-day counter.
	QuotaEnabled bool
	DailyLimit   int64
	// AtomicQuota increments before checking, so concurrent callers cannot
	// overshoot the limit.
	AtomicQuota    bool
	QuotaKeyPrefix string
	QuotaWindow    time.Duration
}

// DefaultOptions returns the production defaults: 90 day cache, quota of 50 per day.
func DefaultOptions() Options {
	return Options{
		CacheTTL:       DefaultCacheTTL,
		QuotaEnabled:   true,
		DailyLimit:     DefaultDailyLimit,
		QuotaKeyPrefix: cache.DefaultQuotaKeyPrefix,
		QuotaWindow:    DefaultQuotaTTL,
	}
}

// Image is a decoded image ready to send to the client.
type Image struct {
	Data     []byte
	CacheHit bool
	// Envelope is the response shape the image arrived in; EnvelopeUnknown on cache hits.
	Envelope gemini.EnvelopeKind
}

// Generator serves images from the cache and falls back to the upstream model.
// Concurrent misses for the same prompt share one upstream call.
type Generator struct {
	source Source
	store  cache.Store
	opts   Options
	now    func() time.Time
	group  singleflight.Group
	log    *zap.Logger
}

// NewGenerator constructs a Generator. A nil source or store is reported per request
// as a configuration error.
func NewGenerator(source Source, store cache.Store, opts Options) *Generator {
	if opts.DailyLimit <= 0 {
		opts.DailyLimit = DefaultDailyLimit
	}
	if opts.QuotaWindow <= 0 {
		opts.QuotaWindow = DefaultQuotaTTL
	}
	if opts.QuotaKeyPrefix == "" {
		opts.QuotaKeyPrefix = cache.DefaultQuotaKeyPrefix
	}
	return &Generator{
		source: source,
		store:  store,
		opts:   opts,
		now:    time.Now,
		log:    logger.WithModule("imagegen"),
	}
}

// Generate returns the image for prompt. The prompt is used verbatim as the cache key.
func (g *Generator) Generate(ctx context.Context, prompt string) (*Image, error) {
	if prompt == "" {
		return nil, appErrors.NewValidation(MsgMissingPrompt)
	}
	if g.source == nil {
		return nil, appErrors.NewConfig(MsgMissingAPIKey)
	}
	if g.store == nil {
		return nil, appErrors.NewConfig(MsgMissingKV)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	key := cache.ImageKey(prompt)
	if data, ok := g.lookup(ctx, key); ok {
		return &Image{Data: data, CacheHit: true}, nil
	}

	// The shared call outlives any single caller so a disconnect cannot discard
	// a generation others are waiting on.
	shared := context.WithoutCancel(ctx)
	v, err, _ := g.group.Do(key, func() (any, error) {
		return g.generate(shared, key, prompt)
	})
	if err != nil {
		return nil, err
	}

	generated := v.(*Image)
	return &Image{Data: generated.Data, Envelope: generated.Envelope}, nil
}

// lookup reads the cached image. Any failure is logged and reported as a miss.
func (g *Generator) lookup(ctx context.Context, key string) ([]byte, bool) {
	raw, ok, err := g.store.Get(ctx, key)
	if err != nil {
		metrics.ImageCacheLookups.WithLabelValues("error").Inc()
		g.log.Warn("image cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok || len(raw) == 0 {
		metrics.ImageCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	data, err := decodeBase64(string(raw))
	if err != nil {
		metrics.ImageCacheLookups.WithLabelValues("error").Inc()
		g.log.Warn("cached image is not valid base64", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	metrics.ImageCacheLookups.WithLabelValues("hit").Inc()
	return data, true
}

func (g *Generator) generate(ctx context.Context, key, prompt string) (*Image, error) {
	if err := g.checkQuota(ctx); err != nil {
		return nil, err
	}

	res, err := g.source.Generate(ctx, prompt)
	if err != nil {
		g.log.Error("image generation failed", zap.String("key", key), zap.Error(err))
		return nil, upstreamError(err)
	}

	data, err := decodeBase64(res.Base64)
	if err != nil {
		g.log.Error("generated image is not valid base64", zap.String("key", key), zap.Stringer("envelope", res.Kind))
		return nil, appErrors.NewUpstream(MsgNoImage, err)
	}

	g.storeImage(ctx, key, res.Base64)
	return &Image{Data: data, Envelope: res.Kind}, nil
}

// storeImage writes the payload back to the cache. Failures are logged only.
func (g *Generator) storeImage(ctx context.Context, key, payload string) {
	if err := g.store.Set(ctx, key, []byte(payload), g.opts.CacheTTL); err != nil {
		metrics.ImageCacheWrites.WithLabelValues("error").Inc()
		g.log.Warn("image cache write failed", zap.String("key", key), zap.Error(err))
		return
	}
	metrics.ImageCacheWrites.WithLabelValues("success").Inc()
}

// checkQuota enforces the daily limit. Store failures let the request through.
func (g *Generator) checkQuota(ctx context.Context) error {
	if !g.opts.QuotaEnabled {
		return nil
	}

	key := cache.QuotaKey(g.opts.QuotaKeyPrefix, g.now())

	if g.opts.AtomicQuota {
		count, err := g.store.IncrementWithTTL(ctx, key, g.opts.QuotaWindow)
		if err != nil {
			g.log.Warn("quota increment failed", zap.String("key", key), zap.Error(err))
			return nil
		}
		if count > g.opts.DailyLimit {
			return g.rejectQuota(key, count)
		}
		return nil
	}

	count, err := g.readCounter(ctx, key)
	if err != nil {
		g.log.Warn("quota read failed", zap.String("key", key), zap.Error(err))
	} else if count >= g.opts.DailyLimit {
		return g.rejectQuota(key, count)
	}

	if _, err := g.store.IncrementWithTTL(ctx, key, g.opts.QuotaWindow); err != nil {
		g.log.Warn("quota increment failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

func (g *Generator) readCounter(ctx context.Context, key string) (int64, error) {
	raw, ok, err := g.store.Get(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
}

func (g *Generator) rejectQuota(key string, count int64) error {
	metrics.QuotaRejections.Inc()
	g.log.Info("daily image quota reached", zap.String("key", key), zap.Int64("count", count))
	return appErrors.ErrQuotaExceeded
}

// upstreamError maps client failures to client-facing errors with diagnostics attached.
func upstreamError(err error) error {
	var nonJSON *gemini.NonJSONError
	if errors.As(err, &nonJSON) {
		return appErrors.NewUpstream(MsgNonJSON, err).WithDetail("raw", nonJSON.Raw)
	}

	var noImage *gemini.NoImageError
	if errors.As(err, &noImage) {
		return appErrors.NewUpstream(MsgNoImage, err).WithDetail("gemini_response", noImage.Response)
	}

	return appErrors.NewUpstream(MsgServiceFailed, err).WithDetail("details", err.Error())
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// decodeBase64 accepts padded or unpadded, standard or URL-safe payloads.
func decodeBase64(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, errors.New("empty payload")
	}

	var firstErr error
	for _, enc := range base64Encodings {
		data, err := enc.DecodeString(payload)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
