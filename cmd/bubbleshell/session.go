package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/bubbleshell/internal/adapter/input"
	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
	"github.com/jmylchreest/bubbleshell/internal/core"
	"github.com/jmylchreest/bubbleshell/internal/dbus"
)

var sessionOpts struct {
	stdin     bool
	separator string
	all       bool
}

var newCmd = &cobra.Command{
	Use:   "new [url...]",
	Short: "Create bubbles",
	Long: `Create one bubble per URL. Without a URL the daemon's default URL is used.

Examples:
  bubbleshell new https://example.com
  cat urls.txt | bubbleshell new --stdin`,
	RunE: runNew,
}

var expandCmd = &cobra.Command{
	Use:   "expand <index|id>",
	Short: "Expand a bubble into its panel",
	Args:  sessionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachSession(args, "expanded", func(ctx context.Context, c *dbus.Client, id string) error {
			return c.Expand(ctx, id)
		})
	},
}

var collapseCmd = &cobra.Command{
	Use:   "collapse <index|id>",
	Short: "Collapse a panel back into its bubble",
	Args:  sessionArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachSession(args, "collapsed", func(ctx context.Context, c *dbus.Client, id string) error {
			return c.Collapse(ctx, id)
		})
	},
}

var closeCmd = &cobra.Command{
	Use:     "close <index|id>...",
	Aliases: []string{"rm"},
	Short:   "Close sessions and forget them",
	Long: `Close sessions. Closed bubbles are removed from the session file.

Examples:
  bubbleshell close 2
  bubbleshell list -f ids | bubbleshell close --stdin
  bubbleshell close --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return forEachSession(args, "closed", func(ctx context.Context, c *dbus.Client, id string) error {
			return c.CloseSession(ctx, id)
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <index|id> <x> <y>",
	Short: "Move a bubble; edge snapping and clamping still apply",
	Args:  cobra.ExactArgs(3),
	RunE:  runMove,
}

var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Collapse every panel, or expand every bubble when none is open",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDaemon(func(ctx context.Context, c *dbus.Client) error {
			return c.ToggleAll(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(newCmd, expandCmd, collapseCmd, closeCmd, moveCmd, toggleCmd)

	for _, c := range []*cobra.Command{newCmd, expandCmd, collapseCmd, closeCmd} {
		c.Flags().BoolVar(&sessionOpts.stdin, "stdin", false,
			"Read targets from stdin, one per line (dmenu lines are accepted)")
	}
	for _, c := range []*cobra.Command{expandCmd, collapseCmd, closeCmd} {
		c.Flags().StringVar(&sessionOpts.separator, "separator", " | ",
			"Field separator of dmenu lines read with --stdin")
	}
	closeCmd.Flags().BoolVar(&sessionOpts.all, "all", false,
		"Close every session")
}

// sessionArgs requires exactly one reference unless --stdin is set.
func sessionArgs(cmd *cobra.Command, args []string) error {
	if sessionOpts.stdin {
		return cobra.NoArgs(cmd, args)
	}
	return cobra.ExactArgs(1)(cmd, args)
}

// withDaemon runs fn against a running daemon.
func withDaemon(fn func(ctx context.Context, c *dbus.Client) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	src, err := input.NewDaemonSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	return fn(ctx, src.Client())
}

func runNew(cmd *cobra.Command, args []string) error {
	urls := args
	if sessionOpts.stdin {
		var err error
		urls, err = input.NewStdinAdapter().ReadURLs()
		if err != nil {
			return err
		}
	}
	if len(urls) == 0 {
		urls = []string{""}
	}

	return withDaemon(func(ctx context.Context, c *dbus.Client) error {
		for _, u := range urls {
			id, err := c.NewBubble(ctx, u)
			if err != nil {
				return fmt.Errorf("create %q: %w", u, err)
			}
			fmt.Fprintln(os.Stdout, id)
		}
		return nil
	})
}

// forEachSession resolves references to ids and applies fn to each.
func forEachSession(args []string, verb string, fn func(ctx context.Context, c *dbus.Client, id string) error) error {
	refs := args
	if sessionOpts.stdin {
		var err error
		refs, err = input.NewStdinAdapter().WithSeparator(sessionOpts.separator).ReadIDs()
		if err != nil {
			return err
		}
	}
	if len(refs) == 0 && !sessionOpts.all {
		return fmt.Errorf("no sessions given")
	}

	return withDaemon(func(ctx context.Context, c *dbus.Client) error {
		ids, err := resolveIDs(ctx, c, refs, sessionOpts.all)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := fn(ctx, c, id); err != nil {
				return fmt.Errorf("%s: %w", id, err)
			}
			logger.Info("session "+verb, "id", id)
		}
		return nil
	})
}

// resolveIDs maps 1-based indexes and ids to session ids, or every id when all is set.
func resolveIDs(ctx context.Context, c *dbus.Client, refs []string, all bool) ([]string, error) {
	infos, err := c.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	sessions := make([]output.Session, 0, len(infos))
	for _, info := range infos {
		sessions = append(sessions, input.FromInfo(info))
	}

	if all {
		ids := make([]string, 0, len(sessions))
		for _, s := range sessions {
			ids = append(ids, s.ID)
		}
		return ids, nil
	}

	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		s, err := core.Lookup(sessions, ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func runMove(cmd *cobra.Command, args []string) error {
	x, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid x %q: %w", args[1], err)
	}
	y, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid y %q: %w", args[2], err)
	}

	return withDaemon(func(ctx context.Context, c *dbus.Client) error {
		ids, err := resolveIDs(ctx, c, args[:1], false)
		if err != nil {
			return err
		}
		return c.Move(ctx, ids[0], x, y)
	})
}
