// reaction.go parses the inline reaction directive out of model output.
// The model can wrap an emoji between two marker tokens, e.g.
// "!react 🎉 !reactHello", instructing the bot to react to the triggering
// message with 🎉 and reply with "Hello".
package bot

import "strings"

// reactionMarker is the fixed directive token. It must appear twice, around
// the emoji, for a directive to be recognized.
const reactionMarker = "!react"

// Directive is the parsed result of post-processing a model reply.
type Directive struct {
	// Emoji is the reaction to attach, empty when no directive was found.
	Emoji string

	// Text is the remaining human-visible reply with the markers and the
	// emoji substring removed, trimmed. May be empty (reaction-only reply).
	Text string
}

// ParseDirective extracts a reaction directive from model output.
// Text without the marker token (or with only one occurrence) passes
// through unchanged with no reaction.
func ParseDirective(reply string) Directive {
	first := strings.Index(reply, reactionMarker)
	if first < 0 {
		return Directive{Text: strings.TrimSpace(reply)}
	}

	afterFirst := reply[first+len(reactionMarker):]
	second := strings.Index(afterFirst, reactionMarker)
	if second < 0 {
		// A lone marker is not a directive.
		return Directive{Text: strings.TrimSpace(reply)}
	}

	emoji := strings.TrimSpace(afterFirst[:second])

	// Strip both marker occurrences, then the first occurrence of the
	// emoji candidate from what remains.
	visible := strings.Replace(reply, reactionMarker, "", 2)
	if emoji != "" {
		visible = strings.Replace(visible, emoji, "", 1)
	}

	return Directive{
		Emoji: emoji,
		Text:  strings.TrimSpace(visible),
	}
}
