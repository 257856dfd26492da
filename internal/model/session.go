// Package model defines the core data structures for bubbleshell.
package model

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// SessionIDPrefix is prepended to every generated session ULID.
const SessionIDPrefix = "sess"

// SessionID identifies one browsing session across bubble/panel transitions.
type SessionID string

// NewSessionID creates a new prefixed ULID session identifier.
// ULIDs carry a millisecond timestamp plus 80 random bits, so ids are never reused.
func NewSessionID() (SessionID, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return SessionID(SessionIDPrefix + "_" + id.String()), nil
}

// String returns the id as a plain string.
func (id SessionID) String() string {
	return string(id)
}

// CreatedAt returns the creation time encoded in the id.
// Returns false for ids that are not prefixed ULIDs (e.g. hand-edited records).
func (id SessionID) CreatedAt() (time.Time, bool) {
	raw := strings.TrimPrefix(string(id), SessionIDPrefix+"_")
	parsed, err := ulid.ParseStrict(raw)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(parsed.Time()), true
}

// DisplayState is the visual representation currently active for a session.
type DisplayState int

const (
	// StateCollapsed means the bubble is shown and the panel is hidden.
	StateCollapsed DisplayState = iota
	// StateExpanded means the panel is shown and the bubble is hidden.
	StateExpanded
)

// String returns the string representation of DisplayState.
func (s DisplayState) String() string {
	switch s {
	case StateCollapsed:
		return "collapsed"
	case StateExpanded:
		return "expanded"
	default:
		return "unknown"
	}
}

// Image is a fetched favicon.
type Image struct {
	Data        []byte `json:"data"`
	ContentType string `json:"content_type"`
	SourceURL   string `json:"source_url"`
}

// Clone returns a deep copy of the image.
func (img *Image) Clone() *Image {
	if img == nil {
		return nil
	}
	clone := *img
	clone.Data = append([]byte(nil), img.Data...)
	return &clone
}

// Session is the unit of identity for one browsing context.
// Values returned by the coordinator are snapshots; mutating them has no effect.
type Session struct {
	ID           SessionID
	URL          string
	State        DisplayState
	Position     Point // Bubble origin, top-level coordinate space
	DisplayIndex int   // Display the position is valid for
	HasBubble    bool  // False only for popups that were never collapsed

	PanelFrame Rect      // Last panel frame, zero until first collapse
	Favicon    *Image    // Last committed favicon
	Opener     SessionID // Session that requested this popup, if any

	FaviconGeneration uint64 // Incremented on every favicon fetch start
	Collapsing        bool   // Exit animation running, commit pending
	HasHost           bool   // A web-view host has been created
}

// IsPopup returns true for sessions that have not been promoted to a bubble yet.
func (s *Session) IsPopup() bool {
	return !s.HasBubble
}

// Clone creates a deep copy of the session.
func (s *Session) Clone() Session {
	clone := *s
	clone.Favicon = s.Favicon.Clone()
	return clone
}

// Record returns the persistence form of the session.
func (s *Session) Record() Record {
	return Record{
		ID:           s.ID,
		URL:          s.URL,
		Position:     s.Position,
		DisplayIndex: s.DisplayIndex,
	}
}

// Record is the on-disk form of a bubble-owning session.
type Record struct {
	ID           SessionID `json:"id"`
	URL          string    `json:"url"`
	Position     Point     `json:"position"`
	DisplayIndex int       `json:"displayIndex"`
}

// Validation errors.
var (
	ErrEmptySessionID      = errors.New("session id cannot be empty")
	ErrInvalidDisplayIndex = errors.New("displayIndex cannot be negative")
)

// UnmarshalJSON also accepts the older display_index key.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var aux struct {
		plain
		Legacy *int `json:"display_index"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)
	if aux.Legacy != nil && r.DisplayIndex == 0 {
		r.DisplayIndex = *aux.Legacy
	}
	return nil
}

// Validate checks that the record can be restored.
func (r *Record) Validate() error {
	if r.ID == "" {
		return ErrEmptySessionID
	}
	if r.DisplayIndex < 0 {
		return ErrInvalidDisplayIndex
	}
	return nil
}

// Session converts a record into a collapsed, bubble-owning session without a host.
func (r *Record) Session() Session {
	return Session{
		ID:           r.ID,
		URL:          r.URL,
		State:        StateCollapsed,
		Position:     r.Position,
		DisplayIndex: r.DisplayIndex,
		HasBubble:    true,
	}
}
