package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/bubbleshell/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive session browser",
	Long: `Launch the interactive terminal user interface for managing bubbles.

The list refreshes live from daemon signals, or from the session file when
the daemon is not running (read-only).

Key bindings:
  j/k, ↑/↓    Navigate list
  enter/e     Expand the selected bubble
  c           Collapse the selected panel
  x           Close the selected session
  t           Toggle all
  n           New bubble
  y           Copy URL to clipboard
  /           Filter
  r           Refresh
  ?           Show help
  q           Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	src, ctrl, err := openSource(ctx)
	cancel()
	if err != nil {
		return err
	}
	defer src.Close()

	return tui.Run(tui.RunOptions{
		Config:     getConfig(),
		Source:     src,
		Controller: ctrl,
	})
}
