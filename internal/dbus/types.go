package dbus

import (
	"errors"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

const (
	// DBusInterface is the control interface name.
	DBusInterface = "io.github.jmylchreest.BubbleShell"
	// DBusPath is the control object path.
	DBusPath = "/io/github/jmylchreest/BubbleShell"
	// DBusBusName is the bus name claimed by the daemon.
	DBusBusName = "io.github.jmylchreest.BubbleShell"
)

// Error names returned by the control interface.
const (
	ErrorNotFound = DBusInterface + ".Error.NotFound"
	ErrorFailed   = DBusInterface + ".Error.Failed"
)

// SessionInfo is the wire form of a session snapshot: (sssiiib).
type SessionInfo struct {
	ID           string
	URL          string
	State        string
	X            int32
	Y            int32
	DisplayIndex int32
	Popup        bool
}

// SessionInfoFrom converts a session snapshot to its wire form.
func SessionInfoFrom(s model.Session) SessionInfo {
	state := s.State.String()
	if s.Collapsing {
		state = "collapsing"
	}
	return SessionInfo{
		ID:           s.ID.String(),
		URL:          s.URL,
		State:        state,
		X:            int32(s.Position.X),
		Y:            int32(s.Position.Y),
		DisplayIndex: int32(s.DisplayIndex),
		Popup:        s.IsPopup(),
	}
}

// SessionID returns the typed session id.
func (i SessionInfo) SessionID() model.SessionID {
	return model.SessionID(i.ID)
}

// Position returns the bubble origin.
func (i SessionInfo) Position() model.Point {
	return model.Point{X: int(i.X), Y: int(i.Y)}
}

// ErrNotFound is returned by the client when the daemon does not know a session.
var ErrNotFound = errors.New("session not found")

// newError builds a D-Bus error reply with a single message body.
func newError(name, msg string) *dbus.Error {
	return dbus.NewError(name, []interface{}{msg})
}

// mapError translates a D-Bus error reply back into a package error.
func mapError(err error) error {
	var dErr dbus.Error
	if errors.As(err, &dErr) && dErr.Name == ErrorNotFound {
		return ErrNotFound
	}
	var pErr *dbus.Error
	if errors.As(err, &pErr) && pErr.Name == ErrorNotFound {
		return ErrNotFound
	}
	return err
}
