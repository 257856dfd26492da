package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
)

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output bubble status in Waybar's custom module JSON format.

  "custom/bubbles": {
    "exec": "bubbleshell status",
    "interval": 5,
    "return-type": "json",
    "on-click": "bubbleshell toggle"
  }

The output includes:
  - text: Number of bubbles
  - alt/class: expanded, collapsed, saved (daemon stopped) or empty
  - tooltip: One line per session`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	src, _, err := openSource(ctx)
	if err != nil {
		return outputStatus(os.Stdout, WaybarStatus{Alt: "error", Class: "error", Tooltip: err.Error()})
	}
	defer src.Close()

	sessions, err := src.List(ctx)
	if err != nil {
		return outputStatus(os.Stdout, WaybarStatus{Alt: "error", Class: "error", Tooltip: err.Error()})
	}
	return outputStatus(os.Stdout, generateStatus(sessions))
}

// generateStatus summarizes sessions for Waybar.
func generateStatus(sessions []output.Session) WaybarStatus {
	if len(sessions) == 0 {
		return WaybarStatus{Alt: "empty", Class: "empty", Tooltip: "No bubbles"}
	}

	class := "collapsed"
	expanded := 0
	lines := make([]string, 0, len(sessions))
	for _, s := range sessions {
		switch s.State {
		case "expanded", "collapsing":
			expanded++
		case output.StateSaved:
			class = output.StateSaved
		}
		lines = append(lines, fmt.Sprintf("%s %s", s.State, s.URL))
	}
	if expanded > 0 {
		class = "expanded"
	}

	tooltip := strings.Join(lines, "\n")
	if expanded > 0 {
		tooltip = fmt.Sprintf("%d open\n%s", expanded, tooltip)
	}

	return WaybarStatus{
		Text:       fmt.Sprintf("%d", len(sessions)),
		Alt:        class,
		Tooltip:    tooltip,
		Class:      class,
		Percentage: min(len(sessions), 100),
	}
}

// outputStatus writes the status as JSON.
func outputStatus(w io.Writer, status WaybarStatus) error {
	return json.NewEncoder(w).Encode(status)
}
