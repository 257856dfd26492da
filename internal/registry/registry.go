// Package registry holds the in-memory set of live sessions.
package registry

import (
	"context"
	"errors"

	"github.com/jmylchreest/bubbleshell/internal/model"
	"github.com/jmylchreest/bubbleshell/internal/webview"
)

// ErrDuplicateSession is returned when adding an id that is already registered.
var ErrDuplicateSession = errors.New("session already registered")

// Entry is one live session together with the resources it exclusively owns.
type Entry struct {
	Session model.Session
	Host    webview.Host // nil until first expand

	// CancelFavicon aborts the in-flight favicon fetch, if any.
	CancelFavicon context.CancelFunc
}

// Registry is an insertion-ordered map of session id to entry.
// Enumeration order is creation order (or restore order), which both placement
// and UI listing depend on.
//
// Registry is not safe for concurrent use; the coordinator serializes access.
type Registry struct {
	entries []*Entry
	index   map[model.SessionID]int // id -> slice index
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make([]*Entry, 0),
		index:   make(map[model.SessionID]int),
	}
}

// Add appends an entry. Ids must be unique.
func (r *Registry) Add(e *Entry) error {
	if e == nil || e.Session.ID == "" {
		return model.ErrEmptySessionID
	}
	if _, exists := r.index[e.Session.ID]; exists {
		return ErrDuplicateSession
	}

	r.index[e.Session.ID] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

// Get returns the entry for id.
func (r *Registry) Get(id model.SessionID) (*Entry, bool) {
	idx, exists := r.index[id]
	if !exists {
		return nil, false
	}
	return r.entries[idx], true
}

// Contains reports whether id is registered.
func (r *Registry) Contains(id model.SessionID) bool {
	_, exists := r.index[id]
	return exists
}

// Remove deletes id and returns its entry. Removing an unknown id is a no-op.
func (r *Registry) Remove(id model.SessionID) (*Entry, bool) {
	idx, exists := r.index[id]
	if !exists {
		return nil, false
	}

	e := r.entries[idx]
	r.entries = append(r.entries[:idx], r.entries[idx+1:]...)

	// Rebuild index
	r.index = make(map[model.SessionID]int, len(r.entries))
	for i, entry := range r.entries {
		r.index[entry.Session.ID] = i
	}

	return e, true
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Count returns the number of entries matching fn.
func (r *Registry) Count(fn func(*Entry) bool) int {
	n := 0
	for _, e := range r.entries {
		if fn(e) {
			n++
		}
	}
	return n
}

// Entries returns the entries in insertion order.
// The slice is a copy; the entries are shared.
func (r *Registry) Entries() []*Entry {
	result := make([]*Entry, len(r.entries))
	copy(result, r.entries)
	return result
}

// Sessions returns snapshots of all sessions in insertion order.
func (r *Registry) Sessions() []model.Session {
	result := make([]model.Session, len(r.entries))
	for i, e := range r.entries {
		result[i] = e.Session.Clone()
	}
	return result
}

// Records returns the persistence snapshot: bubble-owning sessions only, in insertion order.
func (r *Registry) Records() []model.Record {
	result := make([]model.Record, 0, len(r.entries))
	for _, e := range r.entries {
		if !e.Session.HasBubble {
			continue
		}
		result = append(result, e.Session.Record())
	}
	return result
}
