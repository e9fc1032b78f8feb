package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/promptgallery/internal/models"
	"github.com/charlesng35/promptgallery/internal/monitoring"
	"github.com/charlesng35/promptgallery/internal/prompts"
	appErrors "github.com/charlesng35/promptgallery/pkg/errors"
	"github.com/charlesng35/promptgallery/pkg/response"
)

// PromptFetcher lists the gallery prompts.
type PromptFetcher interface {
	FetchPrompts(ctx context.Context) ([]models.PromptRecord, error)
}

// PromptHandler serves the prompt catalogue.
type PromptHandler struct {
	fetcher PromptFetcher
}

// NewPromptHandler constructs a prompt handler.
func NewPromptHandler(fetcher PromptFetcher) *PromptHandler {
	return &PromptHandler{fetcher: fetcher}
}

// GET /api/prompts
func (h *PromptHandler) List(c *gin.Context) {
	if h.fetcher == nil {
		monitoring.RecordPromptFetch("failure", 0)
		response.Error(c, appErrors.NewConfig(prompts.MsgMissingEnv))
		return
	}

	records, err := h.fetcher.FetchPrompts(c.Request.Context())
	if err != nil {
		monitoring.RecordPromptFetch("failure", 0)
		response.Error(c, err)
		return
	}
	if records == nil {
		records = []models.PromptRecord{}
	}

	monitoring.RecordPromptFetch("success", len(records))
	response.JSON(c, http.StatusOK, records)
}
