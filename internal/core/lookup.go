package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
)

// LookupByID finds a session by id.
// Returns nil if not found.
func LookupByID(sessions []output.Session, id string) *output.Session {
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i]
		}
	}
	return nil
}

// LookupByIndex finds a session by its index (1-based for user-friendliness).
// Returns nil if index is out of bounds.
func LookupByIndex(sessions []output.Session, index int) *output.Session {
	idx := index - 1
	if idx < 0 || idx >= len(sessions) {
		return nil
	}
	return &sessions[idx]
}

// Lookup resolves ref as a 1-based index when it is a plain number, else as an id.
func Lookup(sessions []output.Session, ref string) (*output.Session, error) {
	ref = strings.TrimSpace(ref)
	if index, err := strconv.Atoi(ref); err == nil {
		s := LookupByIndex(sessions, index)
		if s == nil {
			return nil, fmt.Errorf("index %d out of range (1-%d)", index, len(sessions))
		}
		return s, nil
	}
	if s := LookupByID(sessions, ref); s != nil {
		return s, nil
	}
	return nil, fmt.Errorf("session not found: %s", ref)
}

// Search finds sessions whose URL or id contains term.
// Case-insensitive substring match.
func Search(sessions []output.Session, term string) []output.Session {
	if term == "" {
		return sessions
	}

	term = strings.ToLower(term)
	var result []output.Session
	for _, s := range sessions {
		if strings.Contains(strings.ToLower(s.URL), term) ||
			strings.Contains(strings.ToLower(s.ID), term) {
			result = append(result, s)
		}
	}
	return result
}

// UniqueHosts returns the sorted distinct hosts of the sessions' URLs.
func UniqueHosts(sessions []output.Session) []string {
	seen := make(map[string]bool)
	var hosts []string

	for _, s := range sessions {
		h := Host(s.URL)
		if h != "" && !seen[h] {
			seen[h] = true
			hosts = append(hosts, h)
		}
	}

	sort.Slice(hosts, func(i, j int) bool {
		return strings.ToLower(hosts[i]) < strings.ToLower(hosts[j])
	})
	return hosts
}
