// Package coordinator owns the session lifecycle: which representation of each
// session is visible, when web-view hosts are created and destroyed, and when
// the session snapshot is persisted.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/jmylchreest/bubbleshell/internal/config"
	"github.com/jmylchreest/bubbleshell/internal/geometry"
	"github.com/jmylchreest/bubbleshell/internal/metrics"
	"github.com/jmylchreest/bubbleshell/internal/model"
	"github.com/jmylchreest/bubbleshell/internal/registry"
	"github.com/jmylchreest/bubbleshell/internal/store"
	"github.com/jmylchreest/bubbleshell/internal/webview"
)

// Sentinel errors.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrClosed             = errors.New("coordinator is shut down")
	ErrAlreadyInitialized = errors.New("coordinator already initialized")
)

// FaviconFetcher resolves the icon for a page.
type FaviconFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*model.Image, error)
}

// Options configures a Coordinator.
type Options struct {
	Geometry geometry.Provider   // Required
	Hosts    webview.Factory     // Required
	Store    store.Persistence   // nil disables persistence
	Favicons FaviconFetcher      // nil disables network favicon fetching
	Executor func(func())        // Runs async completions; nil runs them inline
	Config   *config.DaemonConfig // nil uses defaults
	Logger   *slog.Logger
	Metrics  *metrics.Metrics // nil disables metrics

	// AnimatedCollapse is set when a presentation calls CommitCollapse once its
	// panel exit animation ends. Collapse and ToggleAll then only begin the
	// collapse; without it they begin and commit in one step.
	AnimatedCollapse bool

	// OnStoreError is called when Init cannot load the snapshot and, from the
	// writer goroutine, when a save fails.
	OnStoreError func(err error)
}

// Coordinator is the only component allowed to change session state.
// All methods are safe for concurrent use. Intents naming an unknown session
// are no-ops: the session may have been closed by a racing request.
type Coordinator struct {
	mu  sync.Mutex
	reg *registry.Registry

	geometry    geometry.Provider
	hosts       webview.Factory
	persistence store.Persistence
	writer      *store.Writer
	favicons    FaviconFetcher
	exec        func(func())
	config      *config.DaemonConfig
	logger      *slog.Logger
	metrics     *metrics.Metrics
	onStoreErr  func(error)
	animated    bool

	// Base context for favicon fetches, canceled on shutdown
	ctx    context.Context
	cancel context.CancelFunc

	initialized bool
	closed      bool

	// Event delivery
	outbox      []Event
	dispatching bool
	observers   []Observer
	subscribers []chan Event
}

// New creates a Coordinator. Call Init to restore saved sessions.
func New(opts Options) *Coordinator {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config == nil {
		opts.Config = config.DefaultDaemonConfig()
	}
	if opts.Executor == nil {
		opts.Executor = func(fn func()) { fn() }
	}
	if opts.Geometry == nil {
		opts.Geometry = geometry.NewStatic()
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Coordinator{
		reg:         registry.New(),
		geometry:    opts.Geometry,
		hosts:       opts.Hosts,
		persistence: opts.Store,
		favicons:    opts.Favicons,
		exec:        opts.Executor,
		config:      opts.Config,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		onStoreErr:  opts.OnStoreError,
		animated:    opts.AnimatedCollapse,
		ctx:         ctx,
		cancel:      cancel,
	}

	if opts.Store != nil {
		c.writer = store.NewWriter(opts.Store, opts.Logger)
		c.writer.SetErrorHandler(func(err error) {
			c.metrics.PersistFailure()
			if c.onStoreErr != nil {
				c.onStoreErr(err)
			}
		})
	}

	return c
}

// Init restores persisted sessions as collapsed bubbles, in saved order.
// A load failure is logged and treated as an empty snapshot.
func (c *Coordinator) Init(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.initialized {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}
	c.initialized = true
	restore := c.config.Behavior.RestoreOnStart && c.persistence != nil
	c.mu.Unlock()

	if !restore {
		return nil
	}

	records, err := c.persistence.LoadAll()
	if err != nil {
		c.logger.Warn("failed to load saved sessions, starting empty", "error", err)
		if c.onStoreErr != nil {
			c.onStoreErr(err)
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if !c.closed {
		c.restoreLocked(records)
	}
	c.mu.Unlock()
	c.dispatch()

	return nil
}

func (c *Coordinator) restoreLocked(records []model.Record) {
	displays := c.geometry.Displays()
	placement := c.config.Geometry()

	recomputed := false
	for _, rec := range records {
		if c.reg.Contains(rec.ID) {
			continue
		}

		s := rec.Session()
		count := c.bubbleCountLocked()
		pos, idx, moved := geometry.Restore(rec.Position, rec.DisplayIndex, displays, count, placement)
		s.Position = pos
		s.DisplayIndex = idx
		if moved {
			recomputed = true
			c.logger.Debug("saved position off screen, recomputed", "session_id", s.ID, "position", pos)
		}

		if err := c.reg.Add(&registry.Entry{Session: s}); err != nil {
			c.logger.Warn("failed to restore session", "session_id", s.ID, "error", err)
			continue
		}

		c.emitLocked(Event{Kind: EventSessionCreated, Session: s.Clone()})
		c.startFaviconLocked(s.ID)
	}

	c.logger.Info("restored sessions", "count", c.reg.Len())
	if recomputed || c.reg.Len() != len(records) {
		c.persistLocked()
	}
	c.updateGaugesLocked()
}

// Shutdown destroys every host and writes the final snapshot synchronously.
// The session file keeps every bubble so the next start restores it.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	var records []model.Record
	if c.writer != nil {
		records = c.reg.Records()
	}

	for _, e := range c.reg.Entries() {
		if e.CancelFavicon != nil {
			e.CancelFavicon()
			e.CancelFavicon = nil
		}
		if e.Host != nil {
			e.Host.Destroy()
		}
	}

	subscribers := c.subscribers
	c.subscribers = nil
	c.mu.Unlock()

	c.cancel()

	for _, ch := range subscribers {
		close(ch)
	}

	if c.writer == nil {
		return nil
	}
	c.writer.Save(records)
	return c.writer.Close(ctx)
}

// UpdateConfig replaces the configuration used by later placement, snap,
// panel and favicon decisions. Existing bubbles are not moved.
func (c *Coordinator) UpdateConfig(cfg *config.DaemonConfig) {
	if cfg == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = cfg
	c.logger.Debug("configuration updated")
}

// CreateSession creates a collapsed bubble for url. A nil pos places the bubble
// at the next free stack slot of the primary display.
func (c *Coordinator) CreateSession(url string, pos *model.Point) (model.Session, error) {
	id, err := model.NewSessionID()
	if err != nil {
		return model.Session{}, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return model.Session{}, ErrClosed
	}

	if url == "" {
		url = c.config.Behavior.DefaultURL
	}

	s := model.Session{
		ID:        id,
		URL:       url,
		State:     model.StateCollapsed,
		HasBubble: true,
	}

	displays := c.geometry.Displays()
	if pos == nil {
		frame, index := c.primaryFrame(displays)
		s.Position = geometry.Placement(c.bubbleCountLocked(), frame, c.config.Geometry())
		s.DisplayIndex = index
	} else {
		s.Position = *pos
		if d, ok := c.displayForBubble(displays, *pos); ok {
			s.DisplayIndex = d.Index
		}
	}

	if err := c.reg.Add(&registry.Entry{Session: s}); err != nil {
		c.mu.Unlock()
		return model.Session{}, err
	}

	c.logger.Debug("session created", "session_id", id, "url", url, "position", s.Position)
	c.metrics.Transition("create")
	c.persistLocked()
	c.emitLocked(Event{Kind: EventSessionCreated, Session: s.Clone()})
	c.startFaviconLocked(id)
	c.updateGaugesLocked()
	c.mu.Unlock()

	c.dispatch()
	return s, nil
}

// RequestExpand shows the panel for id, creating and loading its host on first
// use. A host that already exists is shown as-is, without reloading.
func (c *Coordinator) RequestExpand(id model.SessionID) {
	c.mu.Lock()
	c.expandLocked(id)
	c.mu.Unlock()
	c.dispatch()
}

func (c *Coordinator) expandLocked(id model.SessionID) {
	if c.closed {
		return
	}
	e, ok := c.reg.Get(id)
	if !ok {
		c.logger.Debug("expand for unknown session ignored", "session_id", id)
		return
	}

	s := &e.Session
	if s.State == model.StateExpanded {
		if s.Collapsing {
			// Re-expanded during the exit animation; the pending commit becomes a no-op
			s.Collapsing = false
			c.metrics.Transition("expand")
			c.emitLocked(Event{Kind: EventSessionExpanded, Session: s.Clone(), Popup: s.IsPopup()})
		}
		return
	}

	fresh := false
	if e.Host == nil {
		host, err := c.hosts.NewHost(id, c.callbacks(id))
		if err != nil {
			c.logger.Warn("failed to create host, session stays collapsed",
				"session_id", id, "error", &webview.HostError{Op: "create", ID: id, Cause: err})
			return
		}
		host.Load(s.URL)
		e.Host = host
		s.HasHost = true
		fresh = true
	}

	s.State = model.StateExpanded
	c.logger.Debug("session expanded", "session_id", id, "fresh", fresh)
	c.metrics.Transition("expand")
	c.emitLocked(Event{Kind: EventSessionExpanded, Session: s.Clone(), Fresh: fresh})
	c.updateGaugesLocked()
}

// RequestCollapse starts collapsing id. It is an alias of BeginCollapse.
func (c *Coordinator) RequestCollapse(id model.SessionID) {
	c.BeginCollapse(id)
}

// BeginCollapse captures the live URL and signals the presentation to start the
// panel exit animation. The structural change happens in CommitCollapse.
func (c *Coordinator) BeginCollapse(id model.SessionID) {
	c.mu.Lock()
	c.beginCollapseLocked(id, nil)
	c.mu.Unlock()
	c.dispatch()
}

// BeginCollapseWithFrame is BeginCollapse that also records the panel frame.
func (c *Coordinator) BeginCollapseWithFrame(id model.SessionID, frame model.Rect) {
	c.mu.Lock()
	c.beginCollapseLocked(id, &frame)
	c.mu.Unlock()
	c.dispatch()
}

func (c *Coordinator) beginCollapseLocked(id model.SessionID, frame *model.Rect) bool {
	if c.closed {
		return false
	}
	e, ok := c.reg.Get(id)
	if !ok {
		c.logger.Debug("collapse for unknown session ignored", "session_id", id)
		return false
	}

	s := &e.Session
	if s.State != model.StateExpanded || s.Collapsing {
		return false
	}

	if e.Host != nil {
		if current := e.Host.CurrentURL(); current != "" {
			s.URL = current
		}
	}
	if frame != nil && !frame.IsEmpty() {
		s.PanelFrame = *frame
	}

	s.Collapsing = true
	c.logger.Debug("session collapsing", "session_id", id)
	c.emitLocked(Event{Kind: EventSessionCollapsing, Session: s.Clone(), Popup: s.IsPopup()})
	return true
}

// CommitCollapse finishes a collapse after the exit animation. The host is kept
// alive. A popup gains its bubble here (promotion). If the session was closed or
// re-expanded in the meantime nothing happens.
func (c *Coordinator) CommitCollapse(id model.SessionID) {
	c.mu.Lock()
	c.commitCollapseLocked(id)
	c.mu.Unlock()
	c.dispatch()
}

func (c *Coordinator) commitCollapseLocked(id model.SessionID) {
	if c.closed {
		return
	}
	e, ok := c.reg.Get(id)
	if !ok {
		c.logger.Debug("commit for unknown session ignored", "session_id", id)
		return
	}

	s := &e.Session
	if !s.Collapsing {
		return
	}

	promoted := false
	if !s.HasBubble {
		displays := c.geometry.Displays()
		frame, index := c.primaryFrame(displays)
		if !s.PanelFrame.IsEmpty() {
			if d, ok := geometry.Containing(displays, s.PanelFrame.Center()); ok {
				frame, index = d.Frame(), d.Index
			}
		}

		s.Position = geometry.Placement(c.bubbleCountLocked(), frame, c.config.Geometry())
		s.DisplayIndex = index
		s.HasBubble = true
		promoted = true
	}

	s.Collapsing = false
	s.State = model.StateCollapsed

	c.logger.Debug("session collapsed", "session_id", id, "promoted", promoted)
	if promoted {
		c.metrics.Transition("promote")
	} else {
		c.metrics.Transition("collapse")
	}
	c.persistLocked()
	c.emitLocked(Event{Kind: EventSessionCollapsed, Session: s.Clone(), Promoted: promoted})
	c.updateGaugesLocked()
}

// Collapse is the collapse intent of remote callers. With AnimatedCollapse it
// only begins the collapse and the presentation commits it; otherwise it
// performs BeginCollapse and CommitCollapse at once.
func (c *Coordinator) Collapse(id model.SessionID) {
	c.mu.Lock()
	c.collapseLocked(id)
	c.mu.Unlock()
	c.dispatch()
}

func (c *Coordinator) collapseLocked(id model.SessionID) {
	if c.beginCollapseLocked(id, nil) && !c.animated {
		c.commitCollapseLocked(id)
	}
}

// RequestClose removes the session and destroys its host immediately, from
// either state. Closing an unknown session is a no-op.
func (c *Coordinator) RequestClose(id model.SessionID) {
	c.mu.Lock()
	c.closeLocked(id)
	c.mu.Unlock()
	c.dispatch()
}

func (c *Coordinator) closeLocked(id model.SessionID) {
	if c.closed {
		return
	}
	e, ok := c.reg.Remove(id)
	if !ok {
		c.logger.Debug("close for unknown session ignored", "session_id", id)
		return
	}

	if e.CancelFavicon != nil {
		e.CancelFavicon()
		e.CancelFavicon = nil
	}
	if e.Host != nil {
		e.Host.Destroy()
		e.Host = nil
	}

	s := e.Session
	s.Collapsing = false
	s.HasHost = false

	c.logger.Debug("session closed", "session_id", id, "popup", s.IsPopup())
	c.metrics.Transition("close")

	// Unpromoted popups were never persisted
	if s.HasBubble {
		c.persistLocked()
	}
	c.emitLocked(Event{Kind: EventSessionClosed, Session: s, Popup: s.IsPopup()})
	c.updateGaugesLocked()
}

// RequestMove records a dropped bubble position, snapped to nearby display edges.
// Only collapsed bubbles can move.
func (c *Coordinator) RequestMove(id model.SessionID, pos model.Point) {
	c.mu.Lock()
	defer c.dispatch()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	e, ok := c.reg.Get(id)
	if !ok {
		c.logger.Debug("move for unknown session ignored", "session_id", id)
		return
	}

	s := &e.Session
	if s.State != model.StateCollapsed || !s.HasBubble {
		return
	}

	size := c.config.Placement.BubbleSize
	displays := c.geometry.Displays()
	d, ok := c.displayForBubble(displays, pos)
	if ok {
		frame := d.Frame()
		pos = geometry.Clamp(geometry.Snap(pos, size, frame, c.config.SnapGeometry()), size, frame)
		s.DisplayIndex = d.Index
	}
	s.Position = pos

	c.logger.Debug("session moved", "session_id", id, "position", pos, "display", s.DisplayIndex)
	c.metrics.Transition("move")
	c.persistLocked()
	c.emitLocked(Event{Kind: EventSessionMoved, Session: s.Clone()})
}

// SetPanelFrame records the frame the presentation gave the expanded panel.
func (c *Coordinator) SetPanelFrame(id model.SessionID, frame model.Rect) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.reg.Get(id); ok && !frame.IsEmpty() {
		e.Session.PanelFrame = frame
	}
}

// HandleURLChanged records a navigation reported by the session's host.
func (c *Coordinator) HandleURLChanged(id model.SessionID, url string) {
	c.mu.Lock()
	defer c.dispatch()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	e, ok := c.reg.Get(id)
	if !ok {
		c.logger.Debug("url change for unknown session ignored", "session_id", id)
		return
	}

	s := &e.Session
	if url == "" || s.URL == url {
		return
	}
	s.URL = url

	c.logger.Debug("session navigated", "session_id", id, "url", url)
	if s.HasBubble {
		c.persistLocked()
	}
	c.emitLocked(Event{Kind: EventSessionURLChanged, Session: s.Clone(), Popup: s.IsPopup()})
	c.startFaviconLocked(id)
}

// ToggleAll expands every session when none is expanded, otherwise collapses
// every expanded session.
func (c *Coordinator) ToggleAll() {
	c.mu.Lock()
	defer c.dispatch()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	// Work on a copy of the ids; expanding and collapsing never add or remove entries
	var ids []model.SessionID
	for _, e := range c.reg.Entries() {
		ids = append(ids, e.Session.ID)
	}

	if c.expandedCountLocked() == 0 {
		for _, id := range ids {
			c.expandLocked(id)
		}
		return
	}

	for _, id := range ids {
		e, ok := c.reg.Get(id)
		if !ok || e.Session.State != model.StateExpanded {
			continue
		}
		if e.Session.Collapsing {
			// Already animating out; the presentation commits it
			if !c.animated {
				c.commitCollapseLocked(id)
			}
			continue
		}
		c.collapseLocked(id)
	}
}

// Get returns a snapshot of one session.
func (c *Coordinator) Get(id model.SessionID) (model.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.reg.Get(id)
	if !ok {
		return model.Session{}, ErrSessionNotFound
	}
	return e.Session.Clone(), nil
}

// List returns snapshots of all sessions in creation order.
func (c *Coordinator) List() []model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg.Sessions()
}

// Count returns the number of live sessions, popups included.
func (c *Coordinator) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reg.Len()
}

// ExpandedCount returns the number of sessions whose panel is showing.
func (c *Coordinator) ExpandedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expandedCountLocked()
}

func (c *Coordinator) expandedCountLocked() int {
	return c.reg.Count(func(e *registry.Entry) bool {
		return e.Session.State == model.StateExpanded
	})
}

func (c *Coordinator) bubbleCountLocked() int {
	return c.reg.Count(func(e *registry.Entry) bool {
		return e.Session.HasBubble
	})
}

// callbacks wires host events for id back into the coordinator.
func (c *Coordinator) callbacks(id model.SessionID) webview.Callbacks {
	return webview.Callbacks{
		OnURLChanged: func(url string) {
			c.HandleURLChanged(id, url)
		},
		OnFaviconFetched: func(img *model.Image) {
			c.handleHostFavicon(id, img)
		},
		OnPopupRequested: func(url string) webview.Host {
			_, host := c.openPopup(id, url)
			return host
		},
		OnCloseRequested: func() {
			c.RequestClose(id)
		},
	}
}

// persistLocked schedules a snapshot of all bubble sessions.
func (c *Coordinator) persistLocked() {
	if c.writer == nil {
		return
	}
	c.writer.Save(c.reg.Records())
}

// Flush waits until the latest snapshot is on disk.
func (c *Coordinator) Flush(ctx context.Context) error {
	if c.writer == nil {
		return nil
	}
	return c.writer.Flush(ctx)
}

func (c *Coordinator) updateGaugesLocked() {
	if c.metrics == nil {
		return
	}
	var collapsed, expanded, popups int
	for _, e := range c.reg.Entries() {
		switch {
		case !e.Session.HasBubble:
			popups++
		case e.Session.State == model.StateExpanded:
			expanded++
		default:
			collapsed++
		}
	}
	c.metrics.SetSessions(collapsed, expanded, popups)
}

func (c *Coordinator) primaryFrame(displays []geometry.Display) (model.Rect, int) {
	if d, ok := geometry.Primary(displays); ok {
		return d.Frame(), d.Index
	}
	return model.Rect{}, 0
}

// displayForBubble picks the display containing the bubble's center, falling
// back to the primary display.
func (c *Coordinator) displayForBubble(displays []geometry.Display, pos model.Point) (geometry.Display, bool) {
	size := c.config.Placement.BubbleSize
	center := pos.Add(size/2, size/2)
	if d, ok := geometry.Containing(displays, center); ok {
		return d, true
	}
	return geometry.Primary(displays)
}
