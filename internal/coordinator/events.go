package coordinator

import (
	"github.com/jmylchreest/bubbleshell/internal/model"
)

// EventKind identifies what changed.
type EventKind int

const (
	// EventSessionCreated is emitted when a bubble session was created or restored.
	EventSessionCreated EventKind = iota
	// EventSessionExpanded is emitted when the panel should be shown.
	EventSessionExpanded
	// EventSessionCollapsing is emitted when the panel should start its exit animation.
	EventSessionCollapsing
	// EventSessionCollapsed is emitted when the bubble should be shown again.
	EventSessionCollapsed
	// EventSessionClosed is emitted when every surface of the session must be removed.
	EventSessionClosed
	// EventSessionURLChanged is emitted after the session navigated.
	EventSessionURLChanged
	// EventSessionFaviconUpdated is emitted when a current favicon was applied.
	EventSessionFaviconUpdated
	// EventSessionMoved is emitted after a bubble was dropped at a new position.
	EventSessionMoved
)

// String returns the signal-style name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventSessionCreated:
		return "SessionCreated"
	case EventSessionExpanded:
		return "SessionExpanded"
	case EventSessionCollapsing:
		return "SessionCollapsing"
	case EventSessionCollapsed:
		return "SessionCollapsed"
	case EventSessionClosed:
		return "SessionClosed"
	case EventSessionURLChanged:
		return "SessionURLChanged"
	case EventSessionFaviconUpdated:
		return "SessionFaviconUpdated"
	case EventSessionMoved:
		return "SessionMoved"
	default:
		return "Unknown"
	}
}

// Event describes one state change. Session is a snapshot taken when the change
// was made, so observers may keep it.
type Event struct {
	Kind    EventKind
	Session model.Session

	// Fresh is set on expand when the host was just created (entrance animation).
	Fresh bool
	// Popup is set on expand when the session is an unpromoted popup.
	Popup bool
	// Promoted is set on collapse when a popup gained its bubble.
	Promoted bool
}

// Observer receives coordinator events in mutation order.
// OnEvent is called without the coordinator lock held and may call back into the
// coordinator; events caused by such calls are delivered after OnEvent returns.
type Observer interface {
	OnEvent(ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ev Event)

// OnEvent calls f(ev).
func (f ObserverFunc) OnEvent(ev Event) {
	f(ev)
}
