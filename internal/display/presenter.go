package display

import (
	"log/slog"
	"sync"

	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/bubbleshell/internal/config"
	"github.com/jmylchreest/bubbleshell/internal/coordinator"
	"github.com/jmylchreest/bubbleshell/internal/geometry"
	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Controller is the set of coordinator intents the presenter raises.
type Controller interface {
	RequestExpand(id model.SessionID)
	BeginCollapseWithFrame(id model.SessionID, frame model.Rect)
	SetPanelFrame(id model.SessionID, frame model.Rect)
	CommitCollapse(id model.SessionID)
	RequestClose(id model.SessionID)
	RequestMove(id model.SessionID, pos model.Point)
}

// surfaces are the windows of one session. Either may be nil.
type surfaces struct {
	bubble *Bubble
	panel  *Panel
}

// Presenter shows and hides bubbles and panels in response to coordinator
// events. OnEvent may be called from any goroutine; all GTK work is moved to
// the main loop.
type Presenter struct {
	app      *gtk.Application
	ctrl     Controller
	monitors *Monitors
	logger   *slog.Logger

	mu     sync.RWMutex
	config *config.DaemonConfig

	// Main loop only
	sessions map[model.SessionID]*surfaces
}

// NewPresenter creates a presenter drawing on app's windows.
func NewPresenter(app *gtk.Application, ctrl Controller, monitors *Monitors, cfg *config.DaemonConfig, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = config.DefaultDaemonConfig()
	}
	return &Presenter{
		app:      app,
		ctrl:     ctrl,
		monitors: monitors,
		config:   cfg,
		logger:   logger,
		sessions: make(map[model.SessionID]*surfaces),
	}
}

// UpdateConfig applies new sizes to windows created afterwards.
func (p *Presenter) UpdateConfig(cfg *config.DaemonConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = cfg
}

func (p *Presenter) currentConfig() *config.DaemonConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.config
}

// OnEvent implements coordinator.Observer.
func (p *Presenter) OnEvent(ev coordinator.Event) {
	glib.IdleAdd(func() {
		p.handle(ev)
	})
}

// Stop destroys every window. It must run on the main loop.
func (p *Presenter) Stop() {
	for id, s := range p.sessions {
		p.destroy(s)
		delete(p.sessions, id)
	}
	p.logger.Info("presenter stopped")
}

func (p *Presenter) handle(ev coordinator.Event) {
	s := ev.Session
	p.logger.Debug("presenting event", "event", ev.Kind.String(), "session_id", s.ID)

	switch ev.Kind {
	case coordinator.EventSessionCreated:
		p.showBubble(s)

	case coordinator.EventSessionExpanded:
		surf := p.surfaces(s.ID)
		if surf.bubble != nil {
			surf.bubble.Hide()
		}
		p.panel(s).Show()

	case coordinator.EventSessionCollapsing:
		surf := p.surfaces(s.ID)
		if surf.panel != nil {
			// Collapses from D-Bus or toggle did not pass a frame
			p.ctrl.SetPanelFrame(s.ID, surf.panel.Frame())
			surf.panel.Hide()
		}
		id := s.ID
		delay := p.currentConfig().Panel.Animation.Duration()
		glib.TimeoutAdd(uint(delay.Milliseconds()), func() {
			p.ctrl.CommitCollapse(id)
		})

	case coordinator.EventSessionCollapsed:
		p.showBubble(s)

	case coordinator.EventSessionMoved:
		if surf := p.surfaces(s.ID); surf.bubble != nil {
			p.place(surf.bubble, s)
		}

	case coordinator.EventSessionURLChanged:
		surf := p.surfaces(s.ID)
		if surf.panel != nil {
			surf.panel.SetURL(s.URL)
		}
		if surf.bubble != nil {
			surf.bubble.SetURL(s.URL)
		}

	case coordinator.EventSessionFaviconUpdated:
		if surf := p.surfaces(s.ID); surf.bubble != nil {
			if !surf.bubble.SetFavicon(s.Favicon) {
				p.logger.Debug("favicon could not be decoded", "session_id", s.ID)
			}
		}

	case coordinator.EventSessionClosed:
		if surf, ok := p.sessions[s.ID]; ok {
			p.destroy(surf)
			delete(p.sessions, s.ID)
		}
	}
}

func (p *Presenter) surfaces(id model.SessionID) *surfaces {
	surf, ok := p.sessions[id]
	if !ok {
		surf = &surfaces{}
		p.sessions[id] = surf
	}
	return surf
}

func (p *Presenter) showBubble(s model.Session) {
	surf := p.surfaces(s.ID)
	if surf.panel != nil {
		surf.panel.Hide()
	}

	if surf.bubble == nil {
		id := s.ID
		b := NewBubble(p.app, p.currentConfig().Placement.BubbleSize)
		b.OnActivate(func() { p.ctrl.RequestExpand(id) })
		b.OnClose(func() { p.ctrl.RequestClose(id) })
		b.OnDrop(func(pos model.Point) { p.ctrl.RequestMove(id, pos) })
		surf.bubble = b
	}

	surf.bubble.SetURL(s.URL)
	surf.bubble.SetFavicon(s.Favicon)
	p.place(surf.bubble, s)
	surf.bubble.Show()
}

func (p *Presenter) panel(s model.Session) *Panel {
	surf := p.surfaces(s.ID)
	if surf.panel == nil {
		id := s.ID
		panel := NewPanel(p.app, p.panelFrame(s))
		panel.OnCollapse(func() { p.ctrl.BeginCollapseWithFrame(id, panel.Frame()) })
		panel.OnClose(func() { p.ctrl.RequestClose(id) })
		surf.panel = panel
	} else {
		surf.panel.SetFrame(p.panelFrame(s))
	}
	surf.panel.SetURL(s.URL)
	return surf.panel
}

// panelFrame is the saved panel frame of s, or a default-sized frame
// centered on its display.
func (p *Presenter) panelFrame(s model.Session) model.Rect {
	cfg := p.currentConfig()
	return geometry.PanelFrame(s.PanelFrame, s.DisplayIndex, p.monitors.Displays(), cfg.Panel.Width, cfg.Panel.Height)
}

// place positions b on the monitor its session position belongs to.
func (p *Presenter) place(b *Bubble, s model.Session) {
	displays := p.monitors.Displays()
	d, ok := geometry.ByIndex(displays, s.DisplayIndex)
	if !ok {
		if d, ok = geometry.Primary(displays); !ok {
			p.logger.Warn("no display to place bubble on", "session_id", s.ID)
			return
		}
	}
	b.Place(s.Position, p.monitors.Monitor(d.Index), d.Bounds)
}

func (p *Presenter) destroy(s *surfaces) {
	if s.bubble != nil {
		s.bubble.Destroy()
	}
	if s.panel != nil {
		s.panel.Destroy()
	}
}
