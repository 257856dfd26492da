// Package core provides filtering, sorting, and lookup logic for session listings.
package core

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // Field name: id, url, host, state, display, popup, age
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	// Cached parsed values
	regex   *regexp.Regexp
	intVal  int
	ageVal  time.Duration
	boolVal bool
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
	now        func() time.Time
}

// FilterOptions specifies simple criteria for filtering sessions.
type FilterOptions struct {
	State string        // Exact state match ("" = any)
	Since time.Duration // Only sessions created within this duration (0 = all)
	Limit int           // Maximum results (0 = unlimited)
}

// Filter filters sessions based on the provided options.
// Sessions without a creation time never match a Since filter.
func Filter(sessions []output.Session, opts FilterOptions) []output.Session {
	cutoff := time.Now().Add(-opts.Since)
	result := make([]output.Session, 0, len(sessions))

	for _, s := range sessions {
		if opts.State != "" && s.State != opts.State {
			continue
		}
		if opts.Since > 0 && (s.CreatedAt.IsZero() || s.CreatedAt.Before(cutoff)) {
			continue
		}
		result = append(result, s)
		if opts.Limit > 0 && len(result) == opts.Limit {
			break
		}
	}

	return result
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	// Special case: 0 means no filter (all time)
	if s == "0" || s == "" {
		return 0, nil
	}

	// Handle day suffix (7d -> 168h)
	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	// Handle week suffix (1w -> 168h)
	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
// Multiple conditions are comma-separated and ANDed together.
//
// Supported fields: id, url, host, state, display, popup, age
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "state=expanded" - open panels
//   - "host=github.com" - bubbles on one site
//   - "url~=(?i)docs" - URL matches a regex
//   - "display>=1,age>1d" - bubbles on secondary displays older than a day
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{
		Conditions: make([]FilterCondition, 0),
		now:        time.Now,
	}
	if expr == "" {
		return filter, nil
	}

	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "state=expanded" or "url~docs"
func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}
			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init pre-parses and validates the condition value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "id":
	case "url", "uri":
		c.Field = "url"
	case "host", "site", "domain":
		c.Field = "host"
	case "state", "status":
		c.Field = "state"
	case "display", "display_index", "monitor":
		c.Field = "display"
		v, err := strconv.Atoi(c.Value)
		if err != nil {
			return fmt.Errorf("invalid display value: %s", c.Value)
		}
		c.intVal = v
	case "popup":
		c.boolVal = parseBool(c.Value)
	case "age":
		dur, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid age value: %w", err)
		}
		c.ageVal = dur
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

// parseBool parses various boolean representations.
func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "y", "t":
		return true
	default:
		return false
	}
}

// Match tests if a session matches the filter expression.
func (f *FilterExpr) Match(s output.Session) bool {
	now := time.Now()
	if f.now != nil {
		now = f.now()
	}
	for _, cond := range f.Conditions {
		if !cond.match(s, now) {
			return false
		}
	}
	return true
}

// match tests if a session matches this single condition.
func (c *FilterCondition) match(s output.Session, now time.Time) bool {
	switch c.Field {
	case "id":
		return c.matchString(s.ID)
	case "url":
		return c.matchString(s.URL)
	case "host":
		return c.matchString(Host(s.URL))
	case "state":
		return c.matchString(s.State)
	case "display":
		return c.matchInt(s.DisplayIndex)
	case "popup":
		return c.matchBool(s.Popup)
	case "age":
		if s.CreatedAt.IsZero() {
			return false
		}
		return c.matchAge(now.Sub(s.CreatedAt))
	default:
		return false
	}
}

// matchString matches a string field.
func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

// matchInt matches an integer field with numeric comparison.
func (c *FilterCondition) matchInt(fieldValue int) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.intVal
	case FilterOpNotEqual:
		return fieldValue != c.intVal
	case FilterOpGreater:
		return fieldValue > c.intVal
	case FilterOpLess:
		return fieldValue < c.intVal
	case FilterOpGreaterEq:
		return fieldValue >= c.intVal
	case FilterOpLessEq:
		return fieldValue <= c.intVal
	default:
		return false
	}
}

// matchBool matches a boolean field.
func (c *FilterCondition) matchBool(fieldValue bool) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.boolVal
	case FilterOpNotEqual:
		return fieldValue != c.boolVal
	default:
		return false
	}
}

// matchAge compares how long ago a session was created.
func (c *FilterCondition) matchAge(age time.Duration) bool {
	switch c.Operator {
	case FilterOpGreater:
		return age > c.ageVal
	case FilterOpLess:
		return age < c.ageVal
	case FilterOpGreaterEq:
		return age >= c.ageVal
	case FilterOpLessEq:
		return age <= c.ageVal
	default:
		return false
	}
}

// FilterWithExpr filters sessions using a filter expression.
func FilterWithExpr(sessions []output.Session, expr *FilterExpr) []output.Session {
	if expr == nil || len(expr.Conditions) == 0 {
		return sessions
	}

	result := make([]output.Session, 0, len(sessions))
	for _, s := range sessions {
		if expr.Match(s) {
			result = append(result, s)
		}
	}
	return result
}

// Host returns the host part of raw, or raw when it has none.
func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
