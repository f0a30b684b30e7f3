// director.go implements the response director: per-message classification
// (mention / reply-to-bot / active-session continuation) and the single
// shared exchange pipeline (backread → assemble → complete → post-process →
// send → touch).
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quibble-dev/quibble/pkg/quibble/channels"
	"github.com/quibble-dev/quibble/pkg/quibble/media"
)

// The only user-visible strings for anything that goes wrong. Internal
// detail stays in the logs.
const (
	promptForInputMention = "Yes? Please ask me something or start a conversation."
	promptForInputReply   = "Please write a message to reply with."
	apologyReply          = "Sorry, I couldn't get a response from the API."
	timeoutNoticeFormat   = "<@%s>, conversation timed out. Please ping me again to start a new conversation."
)

// continuePhrase substitutes for an empty mention when the user already has
// a multi-turn session going.
const continuePhrase = "continue the conversation"

// Backread substitutes sent to the model (not the user) when history can't
// be read.
const (
	backreadForbidden   = "Could not retrieve recent channel messages due to permissions."
	backreadFetchFailed = "Error retrieving recent channel messages."
)

// Director classifies inbound messages and runs the exchange pipeline.
type Director struct {
	cfg       *Config
	store     *SessionStore
	assembler *Assembler
	llm       *CompletionClient
	transport channels.Transport
	images    *media.Preprocessor
	logger    *slog.Logger

	// userLocks serializes handling of messages from the same user so two
	// concurrent messages cannot interleave appends or race the staleness
	// check. Unrelated users proceed in parallel.
	userLocks map[string]*sync.Mutex
	mu        sync.Mutex

	// clock is swapped in tests.
	clock func() time.Time
}

// NewDirector creates a Director wired to the given store and transport.
func NewDirector(cfg *Config, store *SessionStore, transport channels.Transport, logger *slog.Logger) *Director {
	if logger == nil {
		logger = slog.Default()
	}
	return &Director{
		cfg:       cfg,
		store:     store,
		assembler: NewAssembler(store, cfg),
		llm:       NewCompletionClient(cfg, logger),
		transport: transport,
		images:    media.NewPreprocessor(cfg.Vision.MaxImageBytes, cfg.Vision.MaxImageDimension, logger),
		logger:    logger.With("component", "director"),
		userLocks: make(map[string]*sync.Mutex),
		clock:     time.Now,
	}
}

// Handle processes one inbound message end to end. Messages from the bot
// itself (and other bots) never reach here; the transport filters them.
func (d *Director) Handle(ctx context.Context, msg *channels.IncomingMessage) {
	// Serialize per user for the whole exchange. A slow completion call
	// only delays that user's next message, never unrelated users.
	lock := d.userLock(msg.From)
	lock.Lock()
	defer lock.Unlock()

	logger := d.logger.With(
		"exchange_id", uuid.NewString(),
		"user_id", msg.From,
		"chat_id", msg.ChatID,
		"msg_id", msg.ID,
	)

	now := d.clock()
	timeout := time.Duration(d.cfg.ConversationTimeoutSeconds) * time.Second

	// Stale-session check runs unconditionally before classification. The
	// deletion is observable: the notice goes out before any new session
	// logic touches this message.
	if d.store.ExpireIfStale(msg.From, now, timeout) {
		notice := fmt.Sprintf(timeoutNoticeFormat, msg.From)
		if err := d.transport.Send(ctx, msg.ChatID, notice); err != nil {
			logger.Warn("failed to send timeout notice", "error", err)
		}
	}

	text := strings.TrimSpace(msg.Content)
	hasImage := d.cfg.Vision.Enabled && msg.Attachment.IsImage()

	switch {
	case msg.MentionsBot:
		if text == "" && d.store.TurnCount(msg.From) > 1 {
			text = continuePhrase
		}
		if text == "" && !hasImage {
			d.reply(ctx, msg, promptForInputMention, logger)
			return
		}

	case msg.ReplyToBot:
		if text == "" && !hasImage {
			d.reply(ctx, msg, promptForInputReply, logger)
			return
		}

	case d.store.TurnCount(msg.From) > 0:
		// Active-session continuation. Empty input here is dropped
		// silently, unlike the mention and reply-to-bot paths.
		if text == "" && !hasImage {
			return
		}

	default:
		// Not addressed to us and no active session.
		return
	}

	d.exchange(ctx, msg, text, hasImage, logger)
}

// exchange runs the shared pipeline for a qualifying message.
func (d *Director) exchange(ctx context.Context, msg *channels.IncomingMessage, text string, hasImage bool, logger *slog.Logger) {
	start := time.Now()

	backread := d.fetchBackread(ctx, msg, logger)

	var imageDataURL string
	if hasImage {
		imageDataURL = d.prepareImage(ctx, msg, logger)
	}

	payload := d.assembler.Build(msg.From, text, backread, imageDataURL)

	// Typing stays visible on Discord for the duration of a short
	// completion call and clears when the reply lands.
	if err := d.transport.Typing(ctx, msg.ChatID); err != nil {
		logger.Debug("typing indicator failed", "error", err)
	}

	reply, err := d.llm.Complete(ctx, payload)
	if err != nil {
		d.logCompletionFailure(err, logger)
		d.reply(ctx, msg, apologyReply, logger)
		// The exchange still counts as an interaction.
		d.store.Touch(msg.From, d.clock())
		return
	}

	d.store.AppendTurn(msg.From, TextTurn(RoleAssistant, reply))
	d.dispatch(ctx, msg, reply, logger)
	d.store.Touch(msg.From, d.clock())

	logger.Info("exchange complete",
		"duration_ms", time.Since(start).Milliseconds(),
		"transcript_len", d.store.TurnCount(msg.From),
	)
}

// dispatch post-processes the model reply and sends reaction and text.
func (d *Director) dispatch(ctx context.Context, msg *channels.IncomingMessage, reply string, logger *slog.Logger) {
	directive := ParseDirective(reply)

	if directive.Emoji != "" {
		if err := d.transport.React(ctx, msg.ChatID, msg.ID, directive.Emoji); err != nil {
			logger.Warn("failed to add reaction", "emoji", directive.Emoji, "error", err)
		}
	}

	if directive.Text != "" {
		d.reply(ctx, msg, directive.Text, logger)
	}
}

// fetchBackread gathers recent channel messages as context lines. Failures
// substitute an explanatory line for the model rather than aborting.
func (d *Director) fetchBackread(ctx context.Context, msg *channels.IncomingMessage, logger *slog.Logger) []string {
	if d.cfg.BackreadCount <= 0 {
		return nil
	}

	lines, err := d.transport.History(ctx, msg.ChatID, d.cfg.BackreadCount, msg.ID)
	if err != nil {
		if errors.Is(err, channels.ErrHistoryForbidden) {
			logger.Warn("missing read-history permission for backread")
			return []string{backreadForbidden}
		}
		logger.Warn("backread fetch failed", "error", err)
		return []string{backreadFetchFailed}
	}

	return FormatBackread(lines)
}

// prepareImage downloads and prepares the message's image attachment.
// Returns "" when the image can't be used; the exchange proceeds text-only.
func (d *Director) prepareImage(ctx context.Context, msg *channels.IncomingMessage, logger *slog.Logger) string {
	data, err := d.transport.Download(ctx, msg.Attachment)
	if err != nil {
		logger.Warn("attachment download failed", "error", err)
		return ""
	}

	dataURL, ok := d.images.Prepare(data, msg.Attachment.MimeType)
	if !ok {
		return ""
	}
	return dataURL
}

// logCompletionFailure logs the completion error by kind. The user only
// ever sees the generic apology.
func (d *Director) logCompletionFailure(err error, logger *slog.Logger) {
	var statusErr *StatusError
	switch {
	case errors.Is(err, ErrMalformedResponse):
		logger.Error("completion response malformed", "error", err)
	case errors.Is(err, ErrInvalidJSON):
		logger.Error("completion response not valid JSON", "error", err)
	case errors.As(err, &statusErr):
		logger.Error("completion endpoint error", "status", statusErr.Code, "body", statusErr.Body)
	default:
		logger.Error("completion transport error", "error", err)
	}
}

// reply sends a reply to the triggering message, logging send failures.
func (d *Director) reply(ctx context.Context, msg *channels.IncomingMessage, content string, logger *slog.Logger) {
	if err := d.transport.Reply(ctx, msg.ChatID, msg.ID, content); err != nil {
		logger.Error("failed to send reply", "error", err)
	}
}

// userLock returns the mutex serializing exchanges for a user.
func (d *Director) userLock(userID string) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	if lock, exists := d.userLocks[userID]; exists {
		return lock
	}
	lock := &sync.Mutex{}
	d.userLocks[userID] = lock
	return lock
}
