package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/promptgallery/internal/imagegen"
	"github.com/charlesng35/promptgallery/internal/monitoring"
	appErrors "github.com/charlesng35/promptgallery/pkg/errors"
	"github.com/charlesng35/promptgallery/pkg/response"
)

// Response headers describing how an image was served.
const (
	HeaderCache       = "X-Cache"
	CacheStatusHit    = "HIT"
	CacheStatusMiss   = "MISS"
	imageCacheControl = "public, max-age=86400"
)

// ImageGenerator produces PNG bytes for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*imagegen.Image, error)
}

// ImageHandler serves generated images.
type ImageHandler struct {
	generator ImageGenerator
}

type imageQuery struct {
	Prompt string `form:"prompt" binding:"required"`
}

// NewImageHandler constructs an image handler.
func NewImageHandler(generator ImageGenerator) *ImageHandler {
	return &ImageHandler{generator: generator}
}

// GET /api/image?prompt=<text>
func (h *ImageHandler) Generate(c *gin.Context) {
	start := time.Now()

	var query imageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.NewValidation(imagegen.MsgMissingPrompt))
		return
	}

	if h.generator == nil {
		response.Error(c, appErrors.NewConfig(imagegen.MsgMissingAPIKey))
		monitoring.RecordImageRequest(monitoring.ImageResultFailed, time.Since(start))
		return
	}

	image, err := h.generator.Generate(c.Request.Context(), query.Prompt)
	if err != nil {
		switch {
		case appErrors.IsKind(err, appErrors.KindValidation):
		case appErrors.IsKind(err, appErrors.KindQuotaExceeded):
			monitoring.RecordImageRequest(monitoring.ImageResultRejected, time.Since(start))
		default:
			monitoring.RecordImageRequest(monitoring.ImageResultFailed, time.Since(start))
		}
		response.Error(c, err)
		return
	}

	result, status := monitoring.ImageResultGenerated, CacheStatusMiss
	if image.CacheHit {
		result, status = monitoring.ImageResultHit, CacheStatusHit
	}

	c.Header(HeaderCache, status)
	c.Header("Cache-Control", imageCacheControl)
	response.Binary(c, http.StatusOK, response.ContentTypePNG, image.Data)
	monitoring.RecordImageRequest(result, time.Since(start))
}
