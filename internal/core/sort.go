package core

import (
	"sort"
	"strings"

	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
)

// SortField represents a field to sort by.
type SortField string

const (
	SortByOrder   SortField = "order" // Registry order, as listed by the daemon
	SortByCreated SortField = "created"
	SortByURL     SortField = "url"
	SortByState   SortField = "state"
	SortByDisplay SortField = "display"
)

// SortOrder represents ascending or descending order.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortOptions specifies sorting criteria.
type SortOptions struct {
	Field SortField
	Order SortOrder
}

// DefaultSortOptions keeps the registry order.
func DefaultSortOptions() SortOptions {
	return SortOptions{
		Field: SortByOrder,
		Order: SortAsc,
	}
}

// Sort sorts sessions in place based on the provided options.
// The sort is stable, so equal keys keep registry order.
func Sort(sessions []output.Session, opts SortOptions) {
	if len(sessions) == 0 {
		return
	}

	if opts.Field == SortByOrder || opts.Field == "" {
		if opts.Order == SortDesc {
			for i, j := 0, len(sessions)-1; i < j; i, j = i+1, j-1 {
				sessions[i], sessions[j] = sessions[j], sessions[i]
			}
		}
		return
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if opts.Order == SortDesc {
			a, b = b, a
		}

		switch opts.Field {
		case SortByCreated:
			return a.CreatedAt.Before(b.CreatedAt)
		case SortByURL:
			return strings.ToLower(a.URL) < strings.ToLower(b.URL)
		case SortByState:
			return a.State < b.State
		case SortByDisplay:
			if a.DisplayIndex != b.DisplayIndex {
				return a.DisplayIndex < b.DisplayIndex
			}
			if a.X != b.X {
				return a.X < b.X
			}
			return a.Y < b.Y
		default:
			return false
		}
	})
}

// ParseSortField parses a sort field string. Unknown values keep registry order.
func ParseSortField(s string) SortField {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "created", "age", "time", "c":
		return SortByCreated
	case "url", "u":
		return SortByURL
	case "state", "s":
		return SortByState
	case "display", "position", "pos", "d":
		return SortByDisplay
	default:
		return SortByOrder
	}
}

// ParseSortOrder parses a sort order string. Unknown values sort ascending.
func ParseSortOrder(s string) SortOrder {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "desc", "descending", "d":
		return SortDesc
	default:
		return SortAsc
	}
}
