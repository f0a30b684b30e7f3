package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/quibble-dev/quibble/pkg/quibble/bot"
)

// defaultConfigTemplate is written by `quibble config init`. Secrets are
// referenced as env vars so nothing sensitive lands on disk in plaintext.
const defaultConfigTemplate = `# Quibble configuration.
api:
  # OpenAI-compatible chat-completions endpoint (required).
  url: ""
  # Bearer token. Leave empty for endpoints without auth, or store it in
  # the OS keyring with: quibble config set-token api
  token: "${QUIBBLE_API_TOKEN}"

discord:
  # Discord bot token (required). Can also live in the OS keyring:
  # quibble config set-token discord
  token: "${QUIBBLE_DISCORD_TOKEN}"
  # allowed_guilds: []
  # allowed_channels: []

temperature: 0.7
context_window: 2048
max_tokens: 512

# Seconds of inactivity before a user's conversation expires.
conversation_timeout: 60

# Recent channel messages attached as context on each exchange.
backread_message_count: 3

system_prompt: "You are a helpful assistant in a chat channel. Be concise."
# example_dialogue: ""

vision:
  enabled: false
  max_image_bytes: 4194304
  max_image_dimension: 1536

logging:
  level: info
  format: json
`

// newConfigCmd creates the `quibble config` command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bot configuration",
		Long: `Manage Quibble configuration.

Examples:
  quibble config init
  quibble config show
  quibble config set-token api
  quibble config set-token discord`,
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
		newConfigSetTokenCmd(),
	)

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		RunE: func(_ *cobra.Command, _ []string) error {
			const path = "config.yaml"
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists, refusing to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o600); err != nil {
				return fmt.Errorf("writing config file: %w", err)
			}
			fmt.Printf("Configuration written to ./%s\n", path)
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			// Never print secrets.
			redacted := *cfg
			if redacted.API.Token != "" {
				redacted.API.Token = "***"
			}
			if redacted.Discord.Token != "" {
				redacted.Discord.Token = "***"
			}

			out, err := yaml.Marshal(&redacted)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

func newConfigSetTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-token <api|discord>",
		Short: "Store a token in the OS keyring",
		Long: `Store the completion API token or the Discord bot token in the
operating system's keyring. The token is read from stdin so it never
appears in shell history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var key string
			switch args[0] {
			case "api":
				key = bot.KeyringAPIToken
			case "discord":
				key = bot.KeyringDiscordToken
			default:
				return fmt.Errorf("unknown token kind %q (expected api or discord)", args[0])
			}

			fmt.Print("Paste token and press Enter: ")
			var token string
			if _, err := fmt.Scanln(&token); err != nil {
				return fmt.Errorf("reading token: %w", err)
			}
			if token == "" {
				return fmt.Errorf("empty token")
			}

			if err := bot.StoreKeyring(key, token); err != nil {
				return fmt.Errorf("storing token in keyring: %w", err)
			}
			fmt.Println("Token stored in OS keyring.")
			return nil
		},
	}
}
