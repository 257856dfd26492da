package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionID(t *testing.T) {
	id, err := NewSessionID()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(id.String(), "sess_"))
	assert.Len(t, id.String(), len("sess_")+26)

	other, err := NewSessionID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestSessionID_CreatedAt(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id, err := NewSessionID()
	require.NoError(t, err)

	created, ok := id.CreatedAt()
	require.True(t, ok)
	assert.True(t, created.After(before))
	assert.True(t, created.Before(time.Now().Add(time.Second)))

	_, ok = SessionID("not-a-ulid").CreatedAt()
	assert.False(t, ok)
}

func TestDisplayState_String(t *testing.T) {
	assert.Equal(t, "collapsed", StateCollapsed.String())
	assert.Equal(t, "expanded", StateExpanded.String())
	assert.Equal(t, "unknown", DisplayState(42).String())
}

func TestSession_Clone(t *testing.T) {
	s := Session{
		ID:      "sess_a",
		URL:     "https://example.com",
		Favicon: &Image{Data: []byte{1, 2, 3}, ContentType: "image/png"},
	}

	clone := s.Clone()
	clone.Favicon.Data[0] = 9
	clone.URL = "https://other.example"

	assert.Equal(t, byte(1), s.Favicon.Data[0])
	assert.Equal(t, "https://example.com", s.URL)
}

func TestSession_RecordRoundTrip(t *testing.T) {
	s := Session{
		ID:           "sess_a",
		URL:          "https://example.com",
		State:        StateExpanded,
		Position:     Point{X: 10, Y: 20},
		DisplayIndex: 1,
		HasBubble:    true,
		HasHost:      true,
	}

	r := s.Record()
	assert.Equal(t, SessionID("sess_a"), r.ID)
	assert.Equal(t, Point{X: 10, Y: 20}, r.Position)

	restored := r.Session()
	assert.Equal(t, StateCollapsed, restored.State)
	assert.True(t, restored.HasBubble)
	assert.False(t, restored.HasHost)
	assert.Equal(t, s.URL, restored.URL)
	assert.Equal(t, 1, restored.DisplayIndex)
}

func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr error
	}{
		{"valid", Record{ID: "sess_a"}, nil},
		{"empty id", Record{}, ErrEmptySessionID},
		{"negative display", Record{ID: "sess_a", DisplayIndex: -1}, ErrInvalidDisplayIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRect(t *testing.T) {
	r := Rect{X: 0, Y: 0, Width: 100, Height: 50}

	assert.Equal(t, 100, r.MaxX())
	assert.Equal(t, 50, r.MaxY())
	assert.Equal(t, Point{X: 50, Y: 25}, r.Center())
	assert.True(t, r.Contains(Point{X: 99, Y: 49}))
	assert.False(t, r.Contains(Point{X: 100, Y: 10}))

	assert.True(t, r.Intersects(Rect{X: 90, Y: 40, Width: 20, Height: 20}))
	assert.False(t, r.Intersects(Rect{X: 100, Y: 0, Width: 20, Height: 20}))
	assert.False(t, r.Intersects(Rect{X: 10, Y: 10}))

	assert.True(t, r.ContainsRect(Rect{X: 10, Y: 10, Width: 20, Height: 20}))
	assert.False(t, r.ContainsRect(Rect{X: 90, Y: 10, Width: 20, Height: 20}))
}
