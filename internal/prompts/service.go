package prompts

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/charlesng35/promptgallery/internal/models"
	"github.com/charlesng35/promptgallery/internal/notion"
	appErrors "github.com/charlesng35/promptgallery/pkg/errors"
	"github.com/charlesng35/promptgallery/pkg/logger"
)

// Column names read from the prompt database.
const (
	PropertyTitle    = "Title"
	PropertyCategory = "Category"
	PropertyPrompt   = "Prompt"
	PropertyTags     = "Tags"
)

// Client-facing error messages.
const (
	MsgMissingEnv   = "Missing environment variables"
	MsgFetchFailure = "Failed to fetch Notion data"
)

const defaultMaxPages = 10

// Querier is the subset of the Notion client used by the service.
type Querier interface {
	QueryDatabase(ctx context.Context, databaseID string, req notion.QueryRequest) (*notion.QueryResponse, error)
}

// Options controls how the prompt database is read.
type Options struct {
	DatabaseID string
	// Token is only checked for presence; the Querier carries it on the wire.
	Token    string
	PageSize int
	// FollowPagination keeps reading while Notion reports more rows, up to MaxPages.
	FollowPagination bool
	MaxPages         int
}

// Service turns database rows into gallery prompt records.
type Service struct {
	client Querier
	opts   Options
	log    *zap.Logger
}

// NewService constructs a prompt Service.
func NewService(client Querier, opts Options) *Service {
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	return &Service{
		client: client,
		opts:   opts,
		log:    logger.WithModule("prompts"),
	}
}

// FetchPrompts queries the prompt database and reshapes each row. Only the first page
// is read unless FollowPagination is set.
func (s *Service) FetchPrompts(ctx context.Context) ([]models.PromptRecord, error) {
	if strings.TrimSpace(s.opts.Token) == "" || strings.TrimSpace(s.opts.DatabaseID) == "" || s.client == nil {
		return nil, appErrors.NewConfig(MsgMissingEnv)
	}

	records := make([]models.PromptRecord, 0)
	req := notion.QueryRequest{PageSize: s.opts.PageSize}

	for page := 1; ; page++ {
		resp, err := s.client.QueryDatabase(ctx, s.opts.DatabaseID, req)
		if err != nil {
			s.log.Error("notion query failed", zap.Int("page", page), zap.Error(err))
			return nil, appErrors.NewUpstream(MsgFetchFailure, err)
		}

		for _, row := range resp.Results {
			records = append(records, ToPromptRecord(row))
		}

		if !s.opts.FollowPagination || !resp.HasMore || resp.NextCursor == nil || *resp.NextCursor == "" {
			break
		}
		if page >= s.opts.MaxPages {
			s.log.Warn("notion pagination stopped at page limit", zap.Int("max_pages", s.opts.MaxPages))
			break
		}
		req.StartCursor = *resp.NextCursor
	}

	return records, nil
}

// ToPromptRecord maps one database row. Missing columns yield empty values and the
// default category.
func ToPromptRecord(page notion.Page) models.PromptRecord {
	props := page.Properties
	record := models.PromptRecord{
		ID:       page.ID,
		Title:    props[PropertyTitle].FirstTitle(),
		Category: props[PropertyCategory].SelectName(),
		Prompt:   props[PropertyPrompt].FirstRichText(),
		Tags:     props[PropertyTags].MultiSelectNames(),
	}
	record.Normalize()
	return record
}
