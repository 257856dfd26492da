package dbus

import (
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

func TestSessionInfoFrom(t *testing.T) {
	tests := []struct {
		name     string
		session  model.Session
		expected SessionInfo
	}{
		{
			name: "collapsed bubble",
			session: model.Session{
				ID:           "sess_a",
				URL:          "https://a.example",
				State:        model.StateCollapsed,
				Position:     model.Point{X: 1848, Y: 16},
				DisplayIndex: 1,
				HasBubble:    true,
			},
			expected: SessionInfo{ID: "sess_a", URL: "https://a.example", State: "collapsed", X: 1848, Y: 16, DisplayIndex: 1},
		},
		{
			name:     "expanded popup",
			session:  model.Session{ID: "sess_p", State: model.StateExpanded},
			expected: SessionInfo{ID: "sess_p", State: "expanded", Popup: true},
		},
		{
			name:     "collapsing",
			session:  model.Session{ID: "sess_c", State: model.StateExpanded, Collapsing: true, HasBubble: true},
			expected: SessionInfo{ID: "sess_c", State: "collapsing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := SessionInfoFrom(tt.session)
			assert.Equal(t, tt.expected, info)
			assert.Equal(t, tt.session.ID, info.SessionID())
			assert.Equal(t, tt.session.Position, info.Position())
		})
	}
}

func TestMapError(t *testing.T) {
	notFound := newError(ErrorNotFound, "session not found: sess_x")
	assert.ErrorIs(t, mapError(notFound), ErrNotFound)
	assert.ErrorIs(t, mapError(*notFound), ErrNotFound)

	failed := newError(ErrorFailed, "boom")
	assert.NotErrorIs(t, mapError(failed), ErrNotFound)

	plain := errors.New("connection reset")
	assert.Equal(t, plain, mapError(plain))
	assert.NoError(t, mapError(nil))
}

func TestParseSignal(t *testing.T) {
	valid := &dbus.Signal{
		Path: DBusPath,
		Name: DBusInterface + ".SessionCreated",
		Body: []interface{}{"sess_a", "https://a.example", "collapsed"},
	}
	sig, ok := parseSignal(valid)
	assert.True(t, ok)
	assert.Equal(t, Signal{Name: "SessionCreated", ID: "sess_a", URL: "https://a.example", State: "collapsed"}, sig)

	tests := []struct {
		name string
		sig  *dbus.Signal
	}{
		{"nil", nil},
		{"other path", &dbus.Signal{Path: "/other", Name: valid.Name, Body: valid.Body}},
		{"other interface", &dbus.Signal{Path: DBusPath, Name: "org.freedesktop.DBus.NameAcquired", Body: []interface{}{"x"}}},
		{"short body", &dbus.Signal{Path: DBusPath, Name: valid.Name, Body: []interface{}{"sess_a"}}},
		{"wrong types", &dbus.Signal{Path: DBusPath, Name: valid.Name, Body: []interface{}{"sess_a", 1, "collapsed"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseSignal(tt.sig)
			assert.False(t, ok)
		})
	}
}

func TestIntrospectionData(t *testing.T) {
	names := make(map[string]bool)
	for _, m := range serviceMethods() {
		names[m.Name] = true
	}
	for _, want := range []string{"NewBubble", "Expand", "Collapse", "BeginCollapse", "CommitCollapse", "Close", "Move", "ToggleAll", "GetSession", "ListSessions"} {
		assert.True(t, names[want], "missing method %s", want)
	}

	signals := serviceSignals()
	assert.Len(t, signals, 8)
	for _, s := range signals {
		assert.Len(t, s.Args, 3)
	}
}
