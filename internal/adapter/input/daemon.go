package input

import (
	"context"
	"errors"

	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
	"github.com/jmylchreest/bubbleshell/internal/dbus"
)

// ErrDaemonNotRunning is returned when no daemon owns the control bus name.
var ErrDaemonNotRunning = errors.New("bubbleshelld is not running")

// DaemonSource lists sessions through the daemon's control interface.
type DaemonSource struct {
	client *dbus.Client
}

// NewDaemonSource connects to the session bus and checks that the daemon is up.
func NewDaemonSource(ctx context.Context) (*DaemonSource, error) {
	client, err := dbus.Connect()
	if err != nil {
		return nil, &AdapterError{Source: "daemon", Message: "failed to connect", Err: err}
	}
	if !client.Running(ctx) {
		_ = client.Close()
		return nil, ErrDaemonNotRunning
	}
	return &DaemonSource{client: client}, nil
}

// Name returns the source identifier.
func (s *DaemonSource) Name() string {
	return "daemon"
}

// Client returns the underlying control client.
func (s *DaemonSource) Client() *dbus.Client {
	return s.client
}

// List returns the live sessions.
func (s *DaemonSource) List(ctx context.Context) ([]output.Session, error) {
	infos, err := s.client.ListSessions(ctx)
	if err != nil {
		return nil, &AdapterError{Source: "daemon", Message: "failed to list sessions", Err: err}
	}
	sessions := make([]output.Session, 0, len(infos))
	for _, info := range infos {
		sessions = append(sessions, FromInfo(info))
	}
	return sessions, nil
}

// Watch forwards one tick per control-interface signal.
func (s *DaemonSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	signals, err := s.client.Signals(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for range signals {
			select {
			case out <- struct{}{}:
			default:
				// A tick is already pending
			}
		}
	}()
	return out, nil
}

// Close closes the bus connection.
func (s *DaemonSource) Close() error {
	return s.client.Close()
}

// FromInfo converts a bus session description.
func FromInfo(info dbus.SessionInfo) output.Session {
	return output.Session{
		ID:           info.ID,
		URL:          info.URL,
		State:        info.State,
		X:            int(info.X),
		Y:            int(info.Y),
		DisplayIndex: int(info.DisplayIndex),
		Popup:        info.Popup,
	}.WithCreatedAt()
}
