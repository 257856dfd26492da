package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
	"github.com/jmylchreest/bubbleshell/internal/config"
	"github.com/jmylchreest/bubbleshell/internal/core"
)

var listOpts struct {
	// Filter options
	filter string
	state  string
	since  string
	search string
	limit  int

	// Sort options
	sortBy    string
	sortOrder string

	// Output options
	format   string
	field    string
	template string
	noIndex  bool
	noAge    bool
}

var listCmd = &cobra.Command{
	Use:     "list [index|id]",
	Aliases: []string{"ls", "get"},
	Short:   "List bubble sessions",
	Long: `List sessions known to the daemon, or the saved bubbles when it is not running.

With an index (1-based) or session id argument, outputs that session only.

Examples:
  # Plain listing
  bubbleshell list

  # Pick a bubble with fuzzel and expand it
  bubbleshell list -f dmenu | fuzzel -d | bubbleshell expand --stdin

  # URL of the third bubble
  bubbleshell list 3 --field url

  # Open panels on secondary displays, oldest first
  bubbleshell list --filter "state=expanded,display>=1" --sort created

  # Machine-readable
  bubbleshell list --format json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	// Filter flags
	listCmd.Flags().StringVar(&listOpts.filter, "filter", "",
		"Filter expression (e.g. \"host=github.com,state=expanded\")")
	listCmd.Flags().StringVar(&listOpts.state, "state", "",
		"Only sessions in this state (collapsed, expanded, collapsing, saved)")
	listCmd.Flags().StringVar(&listOpts.since, "since", "",
		"Only sessions created within the duration (e.g. 1h, 7d, 1w)")
	listCmd.Flags().StringVarP(&listOpts.search, "search", "s", "",
		"Search in URL and id")
	listCmd.Flags().IntVarP(&listOpts.limit, "limit", "n", 0,
		"Maximum number of sessions to show (0=unlimited)")

	// Sort flags
	listCmd.Flags().StringVar(&listOpts.sortBy, "sort", "order",
		"Sort by field (order, created, url, state, display)")
	listCmd.Flags().StringVar(&listOpts.sortOrder, "order", "asc",
		"Sort order (asc, desc)")

	// Output flags
	listCmd.Flags().StringVarP(&listOpts.format, "format", "f", "",
		"Output format (plain, json, yaml, dmenu, ids; default from config)")
	listCmd.Flags().StringVar(&listOpts.field, "field", "",
		"Output a single field (id, url, state, position, display)")
	listCmd.Flags().StringVar(&listOpts.template, "template", "",
		"Custom Go template for plain and dmenu output")
	listCmd.Flags().BoolVar(&listOpts.noIndex, "no-index", false,
		"Omit the index prefix")
	listCmd.Flags().BoolVar(&listOpts.noAge, "no-age", false,
		"Omit the session age")
}

func runList(cmd *cobra.Command, args []string) error {
	format := listOpts.format
	if format == "" {
		format = getConfig().List.Format
	}
	if err := config.ValidateFormat(format); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	src, _, err := openSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	sessions, err := src.List(ctx)
	if err != nil {
		return err
	}

	if len(args) > 0 {
		s, err := core.Lookup(sessions, args[0])
		if err != nil {
			return err
		}
		sessions = []output.Session{*s}
	} else {
		sessions, err = querySessions(sessions)
		if err != nil {
			return err
		}
	}

	if listOpts.field != "" {
		for i := range sessions {
			fmt.Fprintln(os.Stdout, output.FormatField(&sessions[i], listOpts.field))
		}
		return nil
	}

	opts := output.DefaultFormatterOptions()
	opts.Template = listOpts.template
	opts.ShowIndex = !listOpts.noIndex
	opts.ShowAge = !listOpts.noAge

	if err := output.NewFormatter(format, opts).Format(os.Stdout, sessions); err != nil {
		return err
	}
	if format == config.FormatPlain && getConfig().List.ShowPaths && src.Name() == "file" {
		if fs, ok := src.(interface{ Path() string }); ok {
			fmt.Fprintf(os.Stdout, "\n(saved sessions from %s)\n", fs.Path())
		}
	}
	return nil
}

// querySessions applies the filter, search and sort flags.
func querySessions(sessions []output.Session) ([]output.Session, error) {
	expr, err := core.ParseFilter(listOpts.filter)
	if err != nil {
		return nil, err
	}
	since, err := core.ParseDuration(listOpts.since)
	if err != nil {
		return nil, err
	}

	sessions = core.FilterWithExpr(sessions, expr)
	sessions = core.Search(sessions, listOpts.search)
	core.Sort(sessions, core.SortOptions{
		Field: core.ParseSortField(listOpts.sortBy),
		Order: core.ParseSortOrder(listOpts.sortOrder),
	})
	return core.Filter(sessions, core.FilterOptions{
		State: listOpts.state,
		Since: since,
		Limit: listOpts.limit,
	}), nil
}
