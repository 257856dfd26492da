// Package webview defines the web-view host capability consumed by the coordinator
// and a headless implementation used when no browser engine is attached.
package webview

import (
	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Host renders one session's page content. One host exists per session and it is
// never recreated while the session lives; hiding and showing the panel reuses it.
type Host interface {
	// Load navigates the host to url.
	Load(url string)

	// CurrentURL returns the live address, including in-page navigation.
	CurrentURL() string

	// Destroy releases the host. Calls after the first are no-ops.
	Destroy()
}

// Callbacks are the events a host raises. Every callback may be invoked from any
// goroutine, but never synchronously from within a Host or Factory method: the
// coordinator calls those while holding its lock.
type Callbacks struct {
	// OnURLChanged is called after the host navigated.
	OnURLChanged func(url string)

	// OnFaviconFetched is called when the engine itself resolved a favicon.
	OnFaviconFetched func(img *model.Image)

	// OnPopupRequested is called when the page opens a new window or tab.
	// It returns the host that should back the new window, or nil to deny it.
	OnPopupRequested func(url string) Host

	// OnCloseRequested is called when the page asked to close its own window.
	OnCloseRequested func()
}

// Factory creates hosts for sessions.
type Factory interface {
	NewHost(id model.SessionID, cb Callbacks) (Host, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(id model.SessionID, cb Callbacks) (Host, error)

// NewHost calls f(id, cb).
func (f FactoryFunc) NewHost(id model.SessionID, cb Callbacks) (Host, error) {
	return f(id, cb)
}

// HostError represents a host creation or lifecycle failure.
type HostError struct {
	Op    string
	ID    model.SessionID
	Cause error
}

func (e *HostError) Error() string {
	msg := "webview " + e.Op + " " + string(e.ID)
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *HostError) Unwrap() error {
	return e.Cause
}
