package coordinator

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/bubbleshell/internal/config"
	"github.com/jmylchreest/bubbleshell/internal/geometry"
	"github.com/jmylchreest/bubbleshell/internal/model"
	"github.com/jmylchreest/bubbleshell/internal/store"
	"github.com/jmylchreest/bubbleshell/internal/webview"
)

var primaryFrame = model.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}

// mockHost is a testify mock of webview.Host.
type mockHost struct {
	mock.Mock
}

func (m *mockHost) Load(url string) {
	m.Called(url)
}

func (m *mockHost) CurrentURL() string {
	return m.Called().String(0)
}

func (m *mockHost) Destroy() {
	m.Called()
}

// newMockHost returns a host that accepts any call and reports url as current.
func newMockHost(url string) *mockHost {
	h := &mockHost{}
	h.On("Load", mock.Anything).Return().Maybe()
	h.On("CurrentURL").Return(url).Maybe()
	h.On("Destroy").Return().Maybe()
	return h
}

// mockFactory is a testify mock of webview.Factory that records callbacks.
type mockFactory struct {
	mock.Mock

	mu        sync.Mutex
	callbacks map[model.SessionID]webview.Callbacks
}

func (m *mockFactory) NewHost(id model.SessionID, cb webview.Callbacks) (webview.Host, error) {
	args := m.Called(id, cb)

	m.mu.Lock()
	if m.callbacks == nil {
		m.callbacks = make(map[model.SessionID]webview.Callbacks)
	}
	m.callbacks[id] = cb
	m.mu.Unlock()

	h, _ := args.Get(0).(webview.Host)
	return h, args.Error(1)
}

func (m *mockFactory) callbacksFor(id model.SessionID) webview.Callbacks {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callbacks[id]
}

// eventLog is an Observer recording every event.
type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) OnEvent(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

func (l *eventLog) kinds() []EventKind {
	var kinds []EventKind
	for _, ev := range l.all() {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func (l *eventLog) count(kind EventKind) int {
	n := 0
	for _, ev := range l.all() {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) last() Event {
	all := l.all()
	if len(all) == 0 {
		return Event{}
	}
	return all[len(all)-1]
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

// harness bundles a coordinator with real persistence in a temp dir.
type harness struct {
	t        *testing.T
	c        *Coordinator
	displays *geometry.Static
	store    *store.JSONPersistence
	factory  *mockFactory
	log      *eventLog
	cfg      *config.DaemonConfig
}

type harnessOption func(*Options)

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sessions.json")
	h := &harness{
		t:        t,
		displays: geometry.NewStatic(geometry.Display{Index: 0, Name: "primary", Bounds: primaryFrame, Primary: true}),
		store:    store.NewJSONPersistence(path, nil),
		factory:  &mockFactory{},
		log:      &eventLog{},
		cfg:      config.DefaultDaemonConfig(),
	}

	o := Options{
		Geometry: h.displays,
		Hosts:    h.factory,
		Store:    h.store,
		Config:   h.cfg,
	}
	for _, fn := range opts {
		fn(&o)
	}

	h.c = New(o)
	h.c.AddObserver(h.log)
	require.NoError(t, h.c.Init(context.Background()))

	t.Cleanup(func() {
		_ = h.c.Shutdown(context.Background())
	})
	return h
}

// expectHost makes the factory return host for id.
func (h *harness) expectHost(id model.SessionID, host webview.Host) *mock.Call {
	return h.factory.On("NewHost", id, mock.Anything).Return(host, nil)
}

func (h *harness) create(url string) model.Session {
	h.t.Helper()
	s, err := h.c.CreateSession(url, nil)
	require.NoError(h.t, err)
	return s
}

func (h *harness) get(id model.SessionID) model.Session {
	h.t.Helper()
	s, err := h.c.Get(id)
	require.NoError(h.t, err)
	return s
}

// saved flushes pending writes and returns the persisted records.
func (h *harness) saved() []model.Record {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(h.t, h.c.Flush(ctx))

	records, err := h.store.LoadAll()
	require.NoError(h.t, err)
	return records
}

func savedIDs(records []model.Record) []model.SessionID {
	ids := make([]model.SessionID, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

// gatedFetcher blocks each Fetch until its URL is released. It ignores ctx so
// tests can deliver results after a newer generation started.
type gatedFetcher struct {
	mu    sync.Mutex
	gates map[string]chan struct{}
	calls []string
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{gates: make(map[string]chan struct{})}
}

func (f *gatedFetcher) gate(url string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.gates[url]
	if !ok {
		g = make(chan struct{})
		f.gates[url] = g
	}
	return g
}

func (f *gatedFetcher) release(url string) {
	close(f.gate(url))
}

func (f *gatedFetcher) Fetch(_ context.Context, pageURL string) (*model.Image, error) {
	f.mu.Lock()
	f.calls = append(f.calls, pageURL)
	f.mu.Unlock()

	<-f.gate(pageURL)
	return &model.Image{ContentType: "image/png", SourceURL: pageURL + "/favicon.ico", Data: []byte{1}}, nil
}

// queuedExecutor captures completions so tests can run them in a chosen order.
type queuedExecutor chan func()

func (q queuedExecutor) run(fn func()) {
	q <- fn
}

func (q queuedExecutor) next(t *testing.T) func() {
	t.Helper()
	select {
	case fn := <-q:
		return fn
	case <-time.After(2 * time.Second):
		t.Fatal("no completion posted")
		return nil
	}
}
