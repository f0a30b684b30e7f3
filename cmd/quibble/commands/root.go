// Package commands implements the Quibble CLI commands using cobra.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quibble-dev/quibble/pkg/quibble/bot"
)

// NewRootCmd creates the CLI root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "quibble",
		Short: "Quibble - Discord LLM relay bot",
		Long: `Quibble relays Discord conversations to an OpenAI-compatible
completion endpoint and posts the replies back, keeping a short-lived
conversation session per user.

Examples:
  quibble serve
  quibble serve --config ./config.yaml
  quibble config init
  quibble config set-token api`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newConfigCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

// resolveConfig loads the configuration from --config or standard locations.
func resolveConfig(cmd *cobra.Command) (*bot.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	if path == "" {
		path = bot.FindConfigFile()
	}
	if path == "" {
		return nil, fmt.Errorf("no config file found; create one with 'quibble config init'")
	}
	return bot.LoadConfigFromFile(path)
}
