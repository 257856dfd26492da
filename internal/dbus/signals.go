package dbus

import (
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/bubbleshell/internal/coordinator"
)

// signalNames lists every signal the service emits, one per event kind.
var signalNames = []string{
	coordinator.EventSessionCreated.String(),
	coordinator.EventSessionExpanded.String(),
	coordinator.EventSessionCollapsing.String(),
	coordinator.EventSessionCollapsed.String(),
	coordinator.EventSessionClosed.String(),
	coordinator.EventSessionURLChanged.String(),
	coordinator.EventSessionFaviconUpdated.String(),
	coordinator.EventSessionMoved.String(),
}

// Emitter sends signals. *dbus.Conn implements it.
type Emitter interface {
	Emit(path dbus.ObjectPath, name string, values ...interface{}) error
}

// SignalBridge is a coordinator observer that re-emits events as D-Bus signals.
type SignalBridge struct {
	emitter Emitter
	logger  *slog.Logger
}

// NewSignalBridge creates a bridge emitting through e.
func NewSignalBridge(e Emitter, logger *slog.Logger) *SignalBridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalBridge{emitter: e, logger: logger}
}

// OnEvent emits the signal named after ev.Kind with (id, url, state).
func (b *SignalBridge) OnEvent(ev coordinator.Event) {
	if err := b.emit(ev); err != nil {
		b.logger.Warn("failed to emit signal", "signal", ev.Kind.String(), "session_id", ev.Session.ID, "error", err)
	}
}

func (b *SignalBridge) emit(ev coordinator.Event) error {
	if b.emitter == nil {
		return fmt.Errorf("not connected to D-Bus")
	}

	info := SessionInfoFrom(ev.Session)
	name := DBusInterface + "." + ev.Kind.String()
	if err := b.emitter.Emit(DBusPath, name, info.ID, info.URL, info.State); err != nil {
		return fmt.Errorf("failed to emit %s signal: %w", ev.Kind, err)
	}

	b.logger.Debug("emitted signal", "signal", ev.Kind.String(), "session_id", info.ID)
	return nil
}

// Signal is a received control-interface signal.
type Signal struct {
	Name  string // Event name, e.g. SessionCreated
	ID    string
	URL   string
	State string
}

// parseSignal decodes a raw bus signal. It returns false for signals from other
// interfaces or with an unexpected body.
func parseSignal(sig *dbus.Signal) (Signal, bool) {
	if sig == nil || sig.Path != DBusPath {
		return Signal{}, false
	}
	prefix := DBusInterface + "."
	if len(sig.Name) <= len(prefix) || sig.Name[:len(prefix)] != prefix {
		return Signal{}, false
	}
	if len(sig.Body) != 3 {
		return Signal{}, false
	}

	id, ok1 := sig.Body[0].(string)
	url, ok2 := sig.Body[1].(string)
	state, ok3 := sig.Body[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return Signal{}, false
	}
	return Signal{Name: sig.Name[len(prefix):], ID: id, URL: url, State: state}, true
}
