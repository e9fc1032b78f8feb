package notion

// QueryRequest is the body of a database query. Zero values are omitted so an
// empty request matches a bare POST.
type QueryRequest struct {
	PageSize    int    `json:"page_size,omitempty"`
	StartCursor string `json:"start_cursor,omitempty"`
}

// QueryResponse is one page of database query results.
type QueryResponse struct {
	Object     string  `json:"object"`
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// Page is a database row. Only the fields the gallery reads are decoded.
type Page struct {
	ID         string              `json:"id"`
	Properties map[string]Property `json:"properties"`
}

// Property holds the value of one column. Which field is populated depends on Type.
type Property struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       []RichText     `json:"title"`
	RichText    []RichText     `json:"rich_text"`
	Select      *SelectOption  `json:"select"`
	MultiSelect []SelectOption `json:"multi_select"`
}

// RichText is a single text segment.
type RichText struct {
	PlainText string `json:"plain_text"`
}

// SelectOption is a select or multi-select choice.
type SelectOption struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// FirstTitle returns the plain text of the first title segment.
func (p Property) FirstTitle() string {
	if len(p.Title) == 0 {
		return ""
	}
	return p.Title[0].PlainText
}

// FirstRichText returns the plain text of the first rich_text segment.
func (p Property) FirstRichText() string {
	if len(p.RichText) == 0 {
		return ""
	}
	return p.RichText[0].PlainText
}

// SelectName returns the selected option name, or "" when nothing is selected.
func (p Property) SelectName() string {
	if p.Select == nil {
		return ""
	}
	return p.Select.Name
}

// MultiSelectNames returns the names of all selected options in order. Never nil.
func (p Property) MultiSelectNames() []string {
	names := make([]string, 0, len(p.MultiSelect))
	for _, option := range p.MultiSelect {
		names = append(names, option.Name)
	}
	return names
}

// errorBody is the payload Notion returns alongside non-2xx statuses.
type errorBody struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
