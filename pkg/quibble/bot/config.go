// Package bot implements the Quibble relay bot: per-user conversation
// sessions with idle expiry, channel backread context, an OpenAI-compatible
// completion client, and reaction directives parsed from model output.
package bot

import (
	"fmt"

	"github.com/quibble-dev/quibble/pkg/quibble/channels/discord"
)

// Config holds all bot configuration.
type Config struct {
	// API configures the completion endpoint.
	API APIConfig `yaml:"api"`

	// Discord is the Discord transport config.
	Discord discord.Config `yaml:"discord"`

	// Temperature is the sampling temperature sent with each request.
	Temperature float64 `yaml:"temperature"`

	// ContextWindow is the context window size forwarded to the endpoint.
	// Zero omits the field (most chat-completion APIs don't accept it).
	ContextWindow int `yaml:"context_window"`

	// MaxTokens caps the model's output length per reply.
	MaxTokens int `yaml:"max_tokens"`

	// ConversationTimeoutSeconds is the idle time after which a user's
	// session expires.
	ConversationTimeoutSeconds int `yaml:"conversation_timeout"`

	// BackreadCount is how many recent channel messages are attached as
	// context on each exchange.
	BackreadCount int `yaml:"backread_message_count"`

	// SystemPrompt is the persona prompt seeding every session.
	SystemPrompt string `yaml:"system_prompt"`

	// ExampleDialogue is an optional example exchange appended to the
	// persona prompt.
	ExampleDialogue string `yaml:"example_dialogue"`

	// Vision configures image attachment handling.
	Vision VisionConfig `yaml:"vision"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the completion endpoint.
type APIConfig struct {
	// URL is the full chat-completions endpoint URL.
	URL string `yaml:"url"`

	// Token is the bearer token sent with each request.
	Token string `yaml:"token"`
}

// VisionConfig configures image attachment handling.
type VisionConfig struct {
	// Enabled turns image forwarding on. When off, attachments are ignored.
	Enabled bool `yaml:"enabled"`

	// MaxImageBytes is the size above which images are re-encoded.
	MaxImageBytes int `yaml:"max_image_bytes"`

	// MaxImageDimension bounds the longest side when re-encoding.
	MaxImageDimension int `yaml:"max_image_dimension"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is the log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the log format ("json", "text").
	Format string `yaml:"format"`
}

// DefaultConfig returns the default bot configuration.
func DefaultConfig() *Config {
	return &Config{
		Temperature:                0.7,
		ContextWindow:              2048,
		MaxTokens:                  512,
		ConversationTimeoutSeconds: 60,
		BackreadCount:              3,
		SystemPrompt:               "You are a helpful assistant in a chat channel. Be concise.",
		Vision: VisionConfig{
			Enabled:           false,
			MaxImageBytes:     4 * 1024 * 1024, // 4MB
			MaxImageDimension: 1536,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks that the configuration is usable. A missing endpoint URL
// or Discord token is fatal at startup.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("config: api.url is required")
	}
	if c.Discord.Token == "" {
		return fmt.Errorf("config: discord.token is required")
	}
	return nil
}

// PersonaPrompt returns the system prompt seeding each session, including
// the example dialogue when configured.
func (c *Config) PersonaPrompt() string {
	if c.ExampleDialogue == "" {
		return c.SystemPrompt
	}
	return c.SystemPrompt + "\n\nExample dialogue:\n" + c.ExampleDialogue
}
