package dbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Controller is the part of the coordinator the control service drives.
type Controller interface {
	CreateSession(url string, pos *model.Point) (model.Session, error)
	RequestExpand(id model.SessionID)
	Collapse(id model.SessionID)
	BeginCollapse(id model.SessionID)
	CommitCollapse(id model.SessionID)
	RequestClose(id model.SessionID)
	RequestMove(id model.SessionID, pos model.Point)
	ToggleAll()
	Get(id model.SessionID) (model.Session, error)
	List() []model.Session
}

// Service implements the io.github.jmylchreest.BubbleShell D-Bus interface.
// Exported methods with a *dbus.Error result are callable over the bus.
type Service struct {
	conn   *dbus.Conn
	ctrl   Controller
	logger *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewService creates a control service for ctrl.
func NewService(ctrl Controller, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		ctrl:   ctrl,
		logger: logger,
	}
}

// Start connects to the session bus, exports the service and claims the bus name.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("service already running")
	}

	conn, err := dbus.SessionBus()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if err := conn.Export(s, DBusPath, DBusInterface); err != nil {
		return fmt.Errorf("failed to export object: %w", err)
	}

	node := &introspect.Node{
		Name: DBusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name:    DBusInterface,
				Methods: serviceMethods(),
				Signals: serviceSignals(),
			},
		},
	}
	if err := conn.Export(introspect.NewIntrospectable(node), DBusPath,
		"org.freedesktop.DBus.Introspectable"); err != nil {
		return fmt.Errorf("failed to export introspectable: %w", err)
	}

	// A second daemon must not steal the name from a running one
	reply, err := conn.RequestName(DBusBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken, is another bubbleshelld running?", DBusBusName)
	}

	s.conn = conn
	s.running = true
	s.logger.Info("D-Bus control service started", "interface", DBusInterface, "path", DBusPath)
	return nil
}

// Stop releases the bus name. The shared session bus connection stays open.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	if _, err := s.conn.ReleaseName(DBusBusName); err != nil {
		s.logger.Warn("failed to release bus name", "error", err)
	}

	s.logger.Info("D-Bus control service stopped")
	return nil
}

// Connection returns the bus connection, or nil before Start.
func (s *Service) Connection() *dbus.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// NewBubble creates a collapsed bubble and returns its id.
// D-Bus method: NewBubble(s) -> s
func (s *Service) NewBubble(url string) (string, *dbus.Error) {
	s.logger.Debug("NewBubble called", "url", url)

	sess, err := s.ctrl.CreateSession(url, nil)
	if err != nil {
		return "", newError(ErrorFailed, err.Error())
	}
	return sess.ID.String(), nil
}

// Expand shows the panel for a session.
// D-Bus method: Expand(s)
func (s *Service) Expand(id string) *dbus.Error {
	s.logger.Debug("Expand called", "session_id", id)
	if err := s.known(id); err != nil {
		return err
	}
	s.ctrl.RequestExpand(model.SessionID(id))
	return nil
}

// Collapse hides the panel and shows the bubble again. When the daemon animates
// panels the bubble returns after the exit animation.
// D-Bus method: Collapse(s)
func (s *Service) Collapse(id string) *dbus.Error {
	s.logger.Debug("Collapse called", "session_id", id)
	if err := s.known(id); err != nil {
		return err
	}
	s.ctrl.Collapse(model.SessionID(id))
	return nil
}

// BeginCollapse starts a collapse for presenters that animate the panel exit.
// D-Bus method: BeginCollapse(s)
func (s *Service) BeginCollapse(id string) *dbus.Error {
	s.logger.Debug("BeginCollapse called", "session_id", id)
	if err := s.known(id); err != nil {
		return err
	}
	s.ctrl.BeginCollapse(model.SessionID(id))
	return nil
}

// CommitCollapse finishes a collapse started with BeginCollapse.
// D-Bus method: CommitCollapse(s)
func (s *Service) CommitCollapse(id string) *dbus.Error {
	s.logger.Debug("CommitCollapse called", "session_id", id)
	s.ctrl.CommitCollapse(model.SessionID(id))
	return nil
}

// Close discards a session. Unknown ids are ignored so that close is idempotent.
// D-Bus method: Close(s)
func (s *Service) Close(id string) *dbus.Error {
	s.logger.Debug("Close called", "session_id", id)
	s.ctrl.RequestClose(model.SessionID(id))
	return nil
}

// Move drops a bubble at x, y. Snapping and clamping are applied by the daemon.
// D-Bus method: Move(sii)
func (s *Service) Move(id string, x, y int32) *dbus.Error {
	s.logger.Debug("Move called", "session_id", id, "x", x, "y", y)
	if err := s.known(id); err != nil {
		return err
	}
	s.ctrl.RequestMove(model.SessionID(id), model.Point{X: int(x), Y: int(y)})
	return nil
}

// ToggleAll collapses every open panel, or expands every bubble if none is open.
// D-Bus method: ToggleAll()
func (s *Service) ToggleAll() *dbus.Error {
	s.logger.Debug("ToggleAll called")
	s.ctrl.ToggleAll()
	return nil
}

// GetSession returns one session snapshot.
// D-Bus method: GetSession(s) -> (sssiiib)
func (s *Service) GetSession(id string) (SessionInfo, *dbus.Error) {
	sess, err := s.ctrl.Get(model.SessionID(id))
	if err != nil {
		return SessionInfo{}, newError(ErrorNotFound, err.Error())
	}
	return SessionInfoFrom(sess), nil
}

// ListSessions returns every live session in creation order.
// D-Bus method: ListSessions() -> a(sssiiib)
func (s *Service) ListSessions() ([]SessionInfo, *dbus.Error) {
	sessions := s.ctrl.List()
	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, SessionInfoFrom(sess))
	}
	return infos, nil
}

func (s *Service) known(id string) *dbus.Error {
	if _, err := s.ctrl.Get(model.SessionID(id)); err != nil {
		return newError(ErrorNotFound, fmt.Sprintf("%v: %s", err, id))
	}
	return nil
}

// serviceMethods returns the D-Bus method introspection data.
func serviceMethods() []introspect.Method {
	idArg := introspect.Arg{Name: "id", Type: "s", Direction: "in"}
	return []introspect.Method{
		{
			Name: "NewBubble",
			Args: []introspect.Arg{
				{Name: "url", Type: "s", Direction: "in"},
				{Name: "id", Type: "s", Direction: "out"},
			},
		},
		{Name: "Expand", Args: []introspect.Arg{idArg}},
		{Name: "Collapse", Args: []introspect.Arg{idArg}},
		{Name: "BeginCollapse", Args: []introspect.Arg{idArg}},
		{Name: "CommitCollapse", Args: []introspect.Arg{idArg}},
		{Name: "Close", Args: []introspect.Arg{idArg}},
		{
			Name: "Move",
			Args: []introspect.Arg{
				idArg,
				{Name: "x", Type: "i", Direction: "in"},
				{Name: "y", Type: "i", Direction: "in"},
			},
		},
		{Name: "ToggleAll"},
		{
			Name: "GetSession",
			Args: []introspect.Arg{
				idArg,
				{Name: "session", Type: "(sssiiib)", Direction: "out"},
			},
		},
		{
			Name: "ListSessions",
			Args: []introspect.Arg{
				{Name: "sessions", Type: "a(sssiiib)", Direction: "out"},
			},
		},
	}
}

// serviceSignals returns the D-Bus signal introspection data.
func serviceSignals() []introspect.Signal {
	signals := make([]introspect.Signal, 0, len(signalNames))
	for _, name := range signalNames {
		signals = append(signals, introspect.Signal{
			Name: name,
			Args: []introspect.Arg{
				{Name: "id", Type: "s"},
				{Name: "url", Type: "s"},
				{Name: "state", Type: "s"},
			},
		})
	}
	return signals
}
