// Package discord implements the Discord transport for Quibble using discordgo.
//
// Features:
//   - Receive text and image attachments
//   - Reply, plain send, reactions, typing indicators
//   - Channel history backread for conversational context
//   - Guild and channel allowlists
//   - Automatic reconnection via discordgo's gateway
package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/quibble-dev/quibble/pkg/quibble/channels"
)

// Config holds Discord transport configuration.
type Config struct {
	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// AllowedGuilds restricts which guild (server) IDs the bot responds in.
	// Empty means respond in all guilds.
	AllowedGuilds []string `yaml:"allowed_guilds"`

	// AllowedChannels restricts which channel IDs the bot responds in.
	// Empty means respond in all channels.
	AllowedChannels []string `yaml:"allowed_channels"`
}

// Discord implements channels.Transport.
type Discord struct {
	cfg     Config
	logger  *slog.Logger
	session *discordgo.Session

	// messages is the channel for incoming messages forwarded to the bot.
	messages chan *channels.IncomingMessage

	// connected tracks connection state.
	connected atomic.Bool

	// httpClient is used for downloading attachments.
	httpClient *http.Client
}

// New creates a new Discord transport instance.
func New(cfg Config, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:        cfg,
		logger:     logger.With("component", "discord"),
		messages:   make(chan *channels.IncomingMessage, 256),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns "discord".
func (d *Discord) Name() string { return "discord" }

// Connect opens the Discord gateway WebSocket connection.
func (d *Discord) Connect(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMessageReactions

	session.AddHandler(d.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	d.session = session
	d.connected.Store(true)

	user := session.State.User
	d.logger.Info("discord: connected", "bot", user.Username, "id", user.ID)

	return nil
}

// Disconnect closes the Discord gateway connection.
func (d *Discord) Disconnect() error {
	if d.session != nil {
		d.session.Close()
	}
	d.connected.Store(false)
	d.logger.Info("discord: disconnected")
	return nil
}

// Receive returns the incoming messages channel.
func (d *Discord) Receive() <-chan *channels.IncomingMessage {
	return d.messages
}

// IsConnected returns true if the bot is connected.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// Reply sends a reply referencing messageID in the given channel.
func (d *Discord) Reply(ctx context.Context, chatID, messageID, content string) error {
	return d.send(chatID, messageID, content)
}

// Send sends a plain message to the channel.
func (d *Discord) Send(ctx context.Context, chatID, content string) error {
	return d.send(chatID, "", content)
}

func (d *Discord) send(chatID, replyTo, content string) error {
	if d.session == nil {
		return channels.ErrTransportDisconnected
	}

	// Discord has a 2000 character limit per message.
	chunks := splitMessage(content, 2000)
	for i, chunk := range chunks {
		msgSend := &discordgo.MessageSend{Content: chunk}
		if i == 0 && replyTo != "" {
			msgSend.Reference = &discordgo.MessageReference{MessageID: replyTo}
		}
		if _, err := d.session.ChannelMessageSendComplex(chatID, msgSend); err != nil {
			return err
		}
	}
	return nil
}

// React adds a reaction emoji to a message.
func (d *Discord) React(ctx context.Context, chatID, messageID, emoji string) error {
	if d.session == nil {
		return channels.ErrTransportDisconnected
	}
	return d.session.MessageReactionAdd(chatID, messageID, emoji)
}

// Typing shows a typing indicator in the channel. Discord keeps it visible
// for roughly ten seconds or until the bot sends a message.
func (d *Discord) Typing(ctx context.Context, chatID string) error {
	if d.session == nil {
		return nil
	}
	return d.session.ChannelTyping(chatID)
}

// History fetches up to limit recent messages from the channel, excluding
// excludeID, ordered oldest-first. A permission failure is reported as
// channels.ErrHistoryForbidden so the caller can substitute context.
func (d *Discord) History(ctx context.Context, chatID string, limit int, excludeID string) ([]channels.HistoryLine, error) {
	if d.session == nil {
		return nil, channels.ErrTransportDisconnected
	}

	// Fetch one extra so the triggering message does not eat into the limit.
	msgs, err := d.session.ChannelMessages(chatID, limit+1, "", "", "")
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil &&
			restErr.Response.StatusCode == http.StatusForbidden {
			return nil, channels.ErrHistoryForbidden
		}
		return nil, fmt.Errorf("discord: fetching history: %w", err)
	}

	// ChannelMessages returns newest-first; collect oldest-first.
	lines := make([]channels.HistoryLine, 0, limit)
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.ID == excludeID {
			continue
		}
		if len(lines) == limit {
			break
		}
		line := channels.HistoryLine{
			Author:  m.Author.Username,
			Content: m.Content,
		}
		for _, att := range m.Attachments {
			if strings.HasPrefix(strings.ToLower(att.ContentType), "image/") {
				line.HasImage = true
				break
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// Download fetches the raw bytes of an attachment.
func (d *Discord) Download(ctx context.Context, att *channels.Attachment) ([]byte, error) {
	if att == nil || att.URL == "" {
		return nil, channels.ErrDownloadFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("discord: download request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discord: download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord: download returned %d: %w", resp.StatusCode, channels.ErrDownloadFailed)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("discord: reading attachment: %w", err)
	}
	return data, nil
}

// ---------- Event Handlers ----------

// onMessageCreate handles incoming Discord messages.
func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore messages from the bot itself and from other bots.
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	// Apply guild filter.
	if len(d.cfg.AllowedGuilds) > 0 && m.GuildID != "" && !contains(d.cfg.AllowedGuilds, m.GuildID) {
		return
	}

	// Apply channel filter.
	if len(d.cfg.AllowedChannels) > 0 && !contains(d.cfg.AllowedChannels, m.ChannelID) {
		return
	}

	botID := s.State.User.ID

	mentioned := false
	for _, u := range m.Mentions {
		if u.ID == botID {
			mentioned = true
			break
		}
	}

	incoming := &channels.IncomingMessage{
		ID:          m.ID,
		Channel:     "discord",
		From:        m.Author.ID,
		FromName:    m.Author.Username,
		ChatID:      m.ChannelID,
		Content:     stripBotMention(m.Content, botID),
		MentionsBot: mentioned,
		Timestamp:   m.Timestamp,
	}

	if m.ReferencedMessage != nil && m.ReferencedMessage.Author != nil {
		incoming.ReplyToBot = m.ReferencedMessage.Author.ID == botID
	}

	if len(m.Attachments) > 0 {
		att := m.Attachments[0] // Use first attachment.
		incoming.Attachment = &channels.Attachment{
			URL:      att.URL,
			MimeType: att.ContentType,
			Filename: att.Filename,
			Size:     att.Size,
		}
	}

	select {
	case d.messages <- incoming:
	default:
		d.logger.Warn("discord: message buffer full, dropping message", "msg_id", incoming.ID)
	}
}

// ---------- Helpers ----------

// stripBotMention removes <@id> and <@!id> mention tokens for the bot user.
func stripBotMention(content, botID string) string {
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	return content
}

// splitMessage splits a message into chunks respecting the character limit.
func splitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}
	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}
		// Try to split at a newline.
		cutAt := maxLen
		if idx := strings.LastIndex(text[:maxLen], "\n"); idx > maxLen/2 {
			cutAt = idx + 1
		}
		chunks = append(chunks, text[:cutAt])
		text = text[cutAt:]
	}
	return chunks
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// Compile-time interface verification.
var _ channels.Transport = (*Discord)(nil)
