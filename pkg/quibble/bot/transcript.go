// transcript.go defines the conversation transcript model: role-tagged turns
// whose content marshals either as a plain string or as a list of typed
// parts, matching the OpenAI chat-completions wire format.
package bot

import "encoding/json"

// Turn roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Part is one typed content element of a multi-part turn.
type Part struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL wraps an inline data URL for an image part.
type ImageURL struct {
	URL string `json:"url"`
}

// Content is the payload of a turn: either plain text or an ordered list of
// typed parts. When Parts is nil the content marshals as a JSON string.
type Content struct {
	Text  string
	Parts []Part
}

// MarshalJSON emits a plain string for text-only content and an array of
// typed parts otherwise.
func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Parts)
}

// Empty reports whether the content has neither text nor parts.
// Empty turns are never appended to a transcript.
func (c Content) Empty() bool {
	return c.Text == "" && len(c.Parts) == 0
}

// Turn is a single role-tagged content unit in a transcript.
type Turn struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// TextTurn builds a plain-text turn.
func TextTurn(role, text string) Turn {
	return Turn{Role: role, Content: Content{Text: text}}
}

// UserImageTurn builds a user turn carrying an image data URL, with an
// optional leading text part. An empty text omits the text part entirely.
func UserImageTurn(text, dataURL string) Turn {
	parts := make([]Part, 0, 2)
	if text != "" {
		parts = append(parts, Part{Type: "text", Text: text})
	}
	parts = append(parts, Part{Type: "image_url", ImageURL: &ImageURL{URL: dataURL}})
	return Turn{Role: RoleUser, Content: Content{Parts: parts}}
}
