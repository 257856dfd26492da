// Package main provides the CLI entrypoint for bubbleshell.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/bubbleshell/internal/adapter/input"
	"github.com/jmylchreest/bubbleshell/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// callTimeout bounds a single daemon round trip.
const callTimeout = 10 * time.Second

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose     bool
		sessionFile string
		configPath  string
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bubbleshell",
	Short: "Control floating browser bubbles",
	Long: `bubbleshell controls the bubbleshelld daemon.

Each bubble is a small floating icon that expands into a browser panel.
Commands talk to the daemon over the session bus. While the daemon is not
running, list, status and tui fall back to the saved session file.

Running bubbleshell without a subcommand launches the interactive TUI.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	// Default to TUI when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.sessionFile, "session-file", "",
		"Path to session file (default: ~/.local/share/bubbleshell/sessions.json)")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/bubbleshell/config.toml)")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// getConfig returns the global config instance.
func getConfig() *config.Config {
	return cfg
}

// openSource returns the daemon source when bubbleshelld runs, else the session file.
func openSource(ctx context.Context) (input.Source, input.Controller, error) {
	src, ctrl, err := input.Detect(ctx, globalOpts.sessionFile)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("using session source", "source", src.Name())
	return src, ctrl, nil
}
