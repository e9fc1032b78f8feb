package models

// DefaultPromptCategory is used when a record has no category selected.
const DefaultPromptCategory = "General"

// PromptRecord is the flattened view of one prompt row served to gallery clients.
type PromptRecord struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Prompt   string   `json:"prompt"`
	Tags     []string `json:"tags"`
}

// Normalize fills defaults so no field serialises as null.
func (p *PromptRecord) Normalize() {
	if p.Category == "" {
		p.Category = DefaultPromptCategory
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
}
