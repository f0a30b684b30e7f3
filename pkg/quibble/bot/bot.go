// bot.go implements the top-level orchestrator: it owns the transport, the
// session store and the director, and runs the inbound message loop.
// Message flow: receive → classify (director) → backread → assemble →
// complete → post-process → send.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quibble-dev/quibble/pkg/quibble/channels"
)

// Bot is the relay bot runtime.
type Bot struct {
	config *Config

	// transport delivers inbound events and carries replies back.
	transport channels.Transport

	// store owns all per-user session state. Process-lifetime only; the
	// bot keeps nothing across restarts.
	store *SessionStore

	// director classifies messages and runs exchanges.
	director *Director

	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Bot with all dependencies.
func New(cfg *Config, transport channels.Transport, logger *slog.Logger) *Bot {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	store := NewSessionStore(cfg.PersonaPrompt(), logger.With("component", "sessions"))

	return &Bot{
		config:    cfg,
		transport: transport,
		store:     store,
		director:  NewDirector(cfg, store, transport, logger),
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start connects the transport and starts the message loop.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.logger.Info("starting quibble",
		"transport", b.transport.Name(),
		"endpoint", b.config.API.URL,
		"temperature", b.config.Temperature,
		"max_tokens", b.config.MaxTokens,
		"conversation_timeout_s", b.config.ConversationTimeoutSeconds,
		"backread_count", b.config.BackreadCount,
		"vision", b.config.Vision.Enabled,
	)

	if err := b.transport.Connect(b.ctx); err != nil {
		return fmt.Errorf("connecting transport: %w", err)
	}

	go b.messageLoop()

	b.logger.Info("quibble started")
	return nil
}

// Stop disconnects the transport and waits briefly for the loop to drain.
func (b *Bot) Stop() {
	b.logger.Info("stopping quibble...")

	if b.cancel != nil {
		b.cancel()
	}
	if err := b.transport.Disconnect(); err != nil {
		b.logger.Warn("transport disconnect failed", "error", err)
	}

	select {
	case <-b.done:
	case <-time.After(5 * time.Second):
		b.logger.Warn("message loop did not drain in time")
	}

	b.logger.Info("quibble stopped", "sessions", b.store.Count())
}

// messageLoop dispatches each inbound message to its own handler goroutine.
// The director serializes per user; unrelated users run concurrently.
func (b *Bot) messageLoop() {
	defer close(b.done)
	for {
		select {
		case msg, ok := <-b.transport.Receive():
			if !ok {
				return
			}
			go b.director.Handle(b.ctx, msg)

		case <-b.ctx.Done():
			return
		}
	}
}
