package prompts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/charlesng35/promptgallery/internal/models"
	"github.com/charlesng35/promptgallery/internal/notion"
	appErrors "github.com/charlesng35/promptgallery/pkg/errors"
)

type fakeQuerier struct {
	pages    []*notion.QueryResponse
	err      error
	requests []notion.QueryRequest
}

func (f *fakeQuerier) QueryDatabase(_ context.Context, databaseID string, req notion.QueryRequest) (*notion.QueryResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[0]
	if len(f.pages) > 1 {
		f.pages = f.pages[1:]
	}
	return page, nil
}

func cursor(s string) *string { return &s }

func TestFetchPromptsRequiresCredentials(t *testing.T) {
	querier := &fakeQuerier{}

	for _, opts := range []Options{
		{DatabaseID: "db"},
		{Token: "secret"},
		{Token: "  ", DatabaseID: "db"},
	} {
		_, err := NewService(querier, opts).FetchPrompts(context.Background())
		require.Error(t, err)
		require.True(t, appErrors.IsKind(err, appErrors.KindConfig))
		require.Equal(t, "Missing environment variables", err.Error())
	}
	require.Empty(t, querier.requests)
}

func TestFetchPromptsMapsRows(t *testing.T) {
	querier := &fakeQuerier{pages: []*notion.QueryResponse{{
		Results: []notion.Page{
			{
				ID: "p1",
				Properties: map[string]notion.Property{
					PropertyTitle:    {Title: []notion.RichText{{PlainText: "Forest"}}},
					PropertyCategory: {Select: &notion.SelectOption{Name: "Nature"}},
					PropertyPrompt:   {RichText: []notion.RichText{{PlainText: "misty forest"}}},
					PropertyTags:     {MultiSelect: []notion.SelectOption{{Name: "green"}, {Name: "fog"}}},
				},
			},
			{ID: "p2"},
		},
	}}}

	records, err := NewService(querier, Options{Token: "secret", DatabaseID: "db", PageSize: 50}).FetchPrompts(context.Background())
	require.NoError(t, err)
	require.Equal(t, []models.PromptRecord{
		{ID: "p1", Title: "Forest", Category: "Nature", Prompt: "misty forest", Tags: []string{"green", "fog"}},
		{ID: "p2", Title: "", Category: "General", Prompt: "", Tags: []string{}},
	}, records)
	require.Equal(t, []notion.QueryRequest{{PageSize: 50}}, querier.requests)
}

func TestPromptRecordNeverSerialisesNull(t *testing.T) {
	record := ToPromptRecord(notion.Page{ID: "empty"})

	raw, err := json.Marshal(record)
	require.NoError(t, err)
	require.JSONEq(t, `{"id":"empty","title":"","category":"General","prompt":"","tags":[]}`, string(raw))
}

func TestFetchPromptsEmptyResultIsArray(t *testing.T) {
	querier := &fakeQuerier{pages: []*notion.QueryResponse{{}}}

	records, err := NewService(querier, Options{Token: "t", DatabaseID: "db"}).FetchPrompts(context.Background())
	require.NoError(t, err)

	raw, err := json.Marshal(records)
	require.NoError(t, err)
	require.Equal(t, "[]", string(raw))
}

func TestFetchPromptsFirstPageOnlyByDefault(t *testing.T) {
	querier := &fakeQuerier{pages: []*notion.QueryResponse{
		{Results: []notion.Page{{ID: "a"}}, HasMore: true, NextCursor: cursor("next")},
		{Results: []notion.Page{{ID: "b"}}},
	}}

	records, err := NewService(querier, Options{Token: "t", DatabaseID: "db"}).FetchPrompts(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, querier.requests, 1)
}

func TestFetchPromptsFollowsPagination(t *testing.T) {
	querier := &fakeQuerier{pages: []*notion.QueryResponse{
		{Results: []notion.Page{{ID: "a"}}, HasMore: true, NextCursor: cursor("c2")},
		{Results: []notion.Page{{ID: "b"}}, HasMore: true, NextCursor: cursor("c3")},
		{Results: []notion.Page{{ID: "c"}}},
	}}

	svc := NewService(querier, Options{Token: "t", DatabaseID: "db", PageSize: 1, FollowPagination: true})
	records, err := svc.FetchPrompts(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, "c", records[2].ID)
	require.Equal(t, []notion.QueryRequest{
		{PageSize: 1},
		{PageSize: 1, StartCursor: "c2"},
		{PageSize: 1, StartCursor: "c3"},
	}, querier.requests)
}

func TestFetchPromptsStopsAtMaxPages(t *testing.T) {
	querier := &fakeQuerier{pages: []*notion.QueryResponse{
		{Results: []notion.Page{{ID: "loop"}}, HasMore: true, NextCursor: cursor("again")},
	}}

	svc := NewService(querier, Options{Token: "t", DatabaseID: "db", FollowPagination: true, MaxPages: 2})
	records, err := svc.FetchPrompts(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, querier.requests, 2)
}

func TestFetchPromptsUpstreamFailure(t *testing.T) {
	querier := &fakeQuerier{err: &notion.StatusError{StatusCode: 502}}

	_, err := NewService(querier, Options{Token: "t", DatabaseID: "db"}).FetchPrompts(context.Background())
	require.Error(t, err)
	require.True(t, appErrors.IsKind(err, appErrors.KindUpstream))

	appErr := appErrors.FromError(err)
	require.Equal(t, "Failed to fetch Notion data", appErr.Message)
	require.Equal(t, 500, appErr.StatusCode)

	var statusErr *notion.StatusError
	require.True(t, errors.As(err, &statusErr))
}
