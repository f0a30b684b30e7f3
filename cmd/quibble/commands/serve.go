package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quibble-dev/quibble/pkg/quibble/bot"
	"github.com/quibble-dev/quibble/pkg/quibble/channels/discord"
)

// newServeCmd creates the `quibble serve` command that starts the bot.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and start relaying messages",
		Long: `Start Quibble as a daemon: connect to the Discord gateway and
relay qualifying messages to the completion endpoint.

Examples:
  quibble serve
  quibble serve --config ./config.yaml --verbose`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Load config ──
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	// ── Configure logger ──
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	if verbose || cfg.Logging.Level == "debug" {
		logLevel = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)

	// ── Resolve secrets ──
	// Keyring-stored tokens override env/config values.
	bot.ResolveSecrets(cfg, logger)

	// A missing endpoint URL or Discord token is fatal at startup.
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── Create bot ──
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := discord.New(cfg.Discord, logger)
	b := bot.New(cfg, transport, logger)

	if err := b.Start(ctx); err != nil {
		return err
	}

	// ── Wait for shutdown ──
	logger.Info("Quibble running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	// Graceful shutdown with timeout.
	done := make(chan struct{})
	go func() {
		b.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out, forcing exit")
	}

	return nil
}
