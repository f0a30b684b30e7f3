// Package channels defines the transport-facing types and interface for the
// Quibble relay bot. A transport (Discord today) delivers inbound message
// events and exposes the reply/react/typing/history operations the bot needs.
package channels

import (
	"context"
	"fmt"
	"time"
)

// Transport is the interface a chat platform adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g. "discord").
	Name() string

	// Connect establishes the connection to the messaging platform.
	Connect(ctx context.Context) error

	// Disconnect gracefully closes the connection.
	Disconnect() error

	// Receive returns a Go channel that emits incoming messages.
	Receive() <-chan *IncomingMessage

	// IsConnected returns true if the transport is connected.
	IsConnected() bool

	// Reply sends a reply referencing the given message.
	Reply(ctx context.Context, chatID, messageID, content string) error

	// Send sends a plain message to the chat.
	Send(ctx context.Context, chatID, content string) error

	// React adds a reaction emoji to a message.
	React(ctx context.Context, chatID, messageID, emoji string) error

	// Typing shows a transient "typing..." indicator in the chat.
	Typing(ctx context.Context, chatID string) error

	// History fetches up to limit recent messages from the chat, excluding
	// the message with excludeID, ordered oldest-first.
	History(ctx context.Context, chatID string, limit int, excludeID string) ([]HistoryLine, error)

	// Download fetches the raw bytes of an attachment.
	Download(ctx context.Context, att *Attachment) ([]byte, error)
}

// IncomingMessage represents a message received from the transport.
type IncomingMessage struct {
	// ID is the unique message identifier on the platform.
	ID string

	// Channel identifies the source transport (e.g. "discord").
	Channel string

	// From is the author identifier on the platform.
	From string

	// FromName is the author display name (if available).
	FromName string

	// ChatID is the channel or DM identifier.
	ChatID string

	// Content is the text content with bot-mention tokens already stripped.
	Content string

	// MentionsBot is true when the bot was mentioned in the message.
	MentionsBot bool

	// ReplyToBot is true when the message is a direct reply to one of the
	// bot's own messages.
	ReplyToBot bool

	// Attachment is the first attachment on the message, if any.
	Attachment *Attachment

	// Timestamp is when the message was sent.
	Timestamp time.Time
}

// Attachment describes a file attached to an incoming message.
type Attachment struct {
	// URL is the direct download URL.
	URL string

	// MimeType is the declared MIME type (e.g. "image/png").
	MimeType string

	// Filename is the original filename.
	Filename string

	// Size is the size in bytes.
	Size int
}

// IsImage reports whether the attachment declares an image MIME type.
func (a *Attachment) IsImage() bool {
	return a != nil && len(a.MimeType) > 6 && a.MimeType[:6] == "image/"
}

// HistoryLine is one backread entry from the chat history.
type HistoryLine struct {
	// Author is the display name of the message author.
	Author string

	// Content is the message text.
	Content string

	// HasImage is true when the message carried an image attachment.
	HasImage bool
}

// Errors.
var (
	ErrTransportDisconnected = fmt.Errorf("transport is not connected")
	ErrHistoryForbidden      = fmt.Errorf("missing permission to read channel history")
	ErrDownloadFailed        = fmt.Errorf("failed to download attachment")
)
