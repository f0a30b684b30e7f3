// context.go implements the context assembler: it merges backread lines and
// the new user message into the session transcript and produces the request
// payload for the completion endpoint.
package bot

import (
	"strings"

	"github.com/quibble-dev/quibble/pkg/quibble/channels"
)

// backreadHeader prefixes the joined backread lines in the context turn.
const backreadHeader = "Recent channel messages for context:\n"

// CompletionRequest is the payload sent to the completion endpoint.
type CompletionRequest struct {
	Messages      []Turn  `json:"messages"`
	Temperature   float64 `json:"temperature"`
	MaxTokens     int     `json:"max_tokens"`
	ContextWindow int     `json:"context_window,omitempty"`
}

// Assembler builds completion payloads from session state, backread context
// and the incoming message.
type Assembler struct {
	store *SessionStore
	cfg   *Config
}

// NewAssembler creates an Assembler over the given store and config.
func NewAssembler(store *SessionStore, cfg *Config) *Assembler {
	return &Assembler{store: store, cfg: cfg}
}

// Build resolves the user's session, appends the backread context turn (when
// backread is non-empty) and the user turn, and returns the full transcript
// with generation parameters.
//
// Backread context turns are appended on every exchange without
// deduplication, so transcripts grow with each backread-carrying exchange.
// That mirrors the source behavior; see DESIGN.md for the growth-bound note.
//
// Callers must not invoke Build with empty text and no image — the director
// short-circuits those cases with a prompt-for-input reply.
func (a *Assembler) Build(userID, text string, backread []string, imageDataURL string) CompletionRequest {
	// Ensure the session exists before appending.
	a.store.GetOrCreate(userID)

	if len(backread) > 0 {
		a.store.AppendTurn(userID, TextTurn(RoleSystem, backreadHeader+strings.Join(backread, "\n")))
	}

	var userTurn Turn
	if imageDataURL != "" {
		userTurn = UserImageTurn(text, imageDataURL)
	} else {
		userTurn = TextTurn(RoleUser, text)
	}
	a.store.AppendTurn(userID, userTurn)

	return CompletionRequest{
		Messages:      a.store.Transcript(userID),
		Temperature:   a.cfg.Temperature,
		MaxTokens:     a.cfg.MaxTokens,
		ContextWindow: a.cfg.ContextWindow,
	}
}

// FormatBackread renders history lines as "author: content" backread lines,
// annotating entries that carried an image attachment.
func FormatBackread(lines []channels.HistoryLine) []string {
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		s := l.Author + ": " + l.Content
		if l.HasImage {
			s += " [attached image]"
		}
		out = append(out, s)
	}
	return out
}
