package coordinator

import (
	"github.com/jmylchreest/bubbleshell/internal/geometry"
	"github.com/jmylchreest/bubbleshell/internal/model"
	"github.com/jmylchreest/bubbleshell/internal/registry"
	"github.com/jmylchreest/bubbleshell/internal/webview"
)

// HandlePopupRequest creates an expanded session without a bubble for a window
// the page at requesting opened. The popup is not persisted until it is
// collapsed (promoted). An empty url leaves the host unloaded so the opener's
// script can navigate it. Returns nil if no host could be created.
func (c *Coordinator) HandlePopupRequest(requesting model.SessionID, url string) *model.Session {
	s, _ := c.openPopup(requesting, url)
	return s
}

func (c *Coordinator) openPopup(requesting model.SessionID, url string) (*model.Session, webview.Host) {
	id, err := model.NewSessionID()
	if err != nil {
		c.logger.Warn("failed to allocate popup id", "error", err)
		return nil, nil
	}

	c.mu.Lock()
	defer c.dispatch()
	defer c.mu.Unlock()

	if c.closed {
		return nil, nil
	}

	host, err := c.hosts.NewHost(id, c.callbacks(id))
	if err != nil {
		c.logger.Warn("failed to create popup host",
			"opener", requesting, "error", &webview.HostError{Op: "create", ID: id, Cause: err})
		return nil, nil
	}
	if url != "" {
		host.Load(url)
	}

	s := model.Session{
		ID:         id,
		URL:        url,
		State:      model.StateExpanded,
		HasBubble:  false,
		HasHost:    true,
		PanelFrame: c.popupFrameLocked(requesting),
	}
	if c.reg.Contains(requesting) {
		s.Opener = requesting
	}

	if err := c.reg.Add(&registry.Entry{Session: s, Host: host}); err != nil {
		host.Destroy()
		c.logger.Warn("failed to register popup", "session_id", id, "error", err)
		return nil, nil
	}

	c.logger.Debug("popup opened", "session_id", id, "opener", requesting, "url", url)
	c.metrics.Transition("popup")
	c.emitLocked(Event{Kind: EventSessionExpanded, Session: s.Clone(), Fresh: true, Popup: true})
	if url != "" {
		c.startFaviconLocked(id)
	}
	c.updateGaugesLocked()

	snapshot := s.Clone()
	return &snapshot, host
}

// popupFrameLocked centers a default-sized panel on the opener's display, or on
// the primary display when the opener is unknown.
func (c *Coordinator) popupFrameLocked(opener model.SessionID) model.Rect {
	displays := c.geometry.Displays()
	frame, _ := c.primaryFrame(displays)

	if e, ok := c.reg.Get(opener); ok {
		s := e.Session
		switch {
		case s.State == model.StateExpanded && !s.PanelFrame.IsEmpty():
			if d, ok := geometry.Containing(displays, s.PanelFrame.Center()); ok {
				frame = d.Frame()
			}
		case s.HasBubble:
			if d, ok := geometry.ByIndex(displays, s.DisplayIndex); ok {
				frame = d.Frame()
			}
		}
	}

	return geometry.CenteredFrame(frame, c.config.Panel.Width, c.config.Panel.Height)
}
