package webview

import (
	"sync"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

// HeadlessFactory creates hosts that track navigation state without rendering.
// The daemon uses it when no browser engine is attached; the driver methods on
// HeadlessHost let callers feed engine events in by hand.
type HeadlessFactory struct {
	mu    sync.Mutex
	hosts map[model.SessionID]*HeadlessHost
}

// NewHeadlessFactory creates a HeadlessFactory.
func NewHeadlessFactory() *HeadlessFactory {
	return &HeadlessFactory{
		hosts: make(map[model.SessionID]*HeadlessHost),
	}
}

// NewHost implements Factory.
func (f *HeadlessFactory) NewHost(id model.SessionID, cb Callbacks) (Host, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h := &HeadlessHost{id: id, callbacks: cb}
	f.hosts[id] = h
	return h, nil
}

// Host returns the most recent host created for id.
func (f *HeadlessFactory) Host(id model.SessionID) (*HeadlessHost, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.hosts[id]
	return h, ok
}

// Created returns how many hosts were ever created.
func (f *HeadlessFactory) Created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hosts)
}

// HeadlessHost is a Host without a rendering engine.
type HeadlessHost struct {
	id        model.SessionID
	callbacks Callbacks

	mu        sync.Mutex
	url       string
	loads     int
	destroyed bool
}

// Load implements Host.
func (h *HeadlessHost) Load(url string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.destroyed {
		return
	}
	h.url = url
	h.loads++
}

// CurrentURL implements Host.
func (h *HeadlessHost) CurrentURL() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.url
}

// Destroy implements Host.
func (h *HeadlessHost) Destroy() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = true
}

// Destroyed reports whether Destroy was called.
func (h *HeadlessHost) Destroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}

// Loads returns how many times Load was called.
func (h *HeadlessHost) Loads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loads
}

// The driver methods below raise callbacks synchronously. They stand in for the
// engine and must not be called from inside a Host or Factory method.

// Navigate simulates the page navigating to url.
func (h *HeadlessHost) Navigate(url string) {
	h.mu.Lock()
	if h.destroyed {
		h.mu.Unlock()
		return
	}
	h.url = url
	h.mu.Unlock()

	if h.callbacks.OnURLChanged != nil {
		h.callbacks.OnURLChanged(url)
	}
}

// ResolveFavicon simulates the engine resolving the page icon itself.
func (h *HeadlessHost) ResolveFavicon(img *model.Image) {
	if h.Destroyed() || h.callbacks.OnFaviconFetched == nil {
		return
	}
	h.callbacks.OnFaviconFetched(img)
}

// OpenWindow simulates the page calling window.open. It returns the host backing
// the new window, or nil if the request was denied.
func (h *HeadlessHost) OpenWindow(url string) Host {
	if h.Destroyed() || h.callbacks.OnPopupRequested == nil {
		return nil
	}
	return h.callbacks.OnPopupRequested(url)
}

// CloseWindow simulates the page calling window.close.
func (h *HeadlessHost) CloseWindow() {
	if h.Destroyed() || h.callbacks.OnCloseRequested == nil {
		return
	}
	h.callbacks.OnCloseRequested()
}
