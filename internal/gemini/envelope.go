package gemini

// EnvelopeKind identifies which response shape carried the image.
type EnvelopeKind int

const (
	EnvelopeUnknown EnvelopeKind = iota
	// EnvelopeImages is the legacy shape: images[0].base64.
	EnvelopeImages
	// EnvelopeGeneratedImages is generatedImages[0].image.base64 (or imageBytes).
	EnvelopeGeneratedImages
	// EnvelopeContentParts is candidates[0].content.parts[*].inlineData.data.
	EnvelopeContentParts
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopeImages:
		return "images"
	case EnvelopeGeneratedImages:
		return "generated_images"
	case EnvelopeContentParts:
		return "content_parts"
	default:
		return "unknown"
	}
}

// Envelope decodes every response shape the image endpoints are known to return.
// At most one of the branches is expected to be populated.
type Envelope struct {
	Images          []LegacyImage    `json:"images"`
	GeneratedImages []GeneratedImage `json:"generatedImages"`
	Candidates      []Candidate      `json:"candidates"`
}

type LegacyImage struct {
	Base64 string `json:"base64"`
}

type GeneratedImage struct {
	Image struct {
		Base64     string `json:"base64"`
		ImageBytes string `json:"imageBytes"`
		MimeType   string `json:"mimeType"`
	} `json:"image"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

type InlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

// Extract returns the base64 image payload, trying shapes in a fixed order:
// images, generatedImages, then candidates. ok is false when no shape carries data.
func (e Envelope) Extract() (payload string, kind EnvelopeKind, ok bool) {
	if len(e.Images) > 0 && e.Images[0].Base64 != "" {
		return e.Images[0].Base64, EnvelopeImages, true
	}

	if len(e.GeneratedImages) > 0 {
		img := e.GeneratedImages[0].Image
		if img.Base64 != "" {
			return img.Base64, EnvelopeGeneratedImages, true
		}
		if img.ImageBytes != "" {
			return img.ImageBytes, EnvelopeGeneratedImages, true
		}
	}

	if len(e.Candidates) > 0 {
		for _, part := range e.Candidates[0].Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return part.InlineData.Data, EnvelopeContentParts, true
			}
		}
	}

	return "", EnvelopeUnknown, false
}
