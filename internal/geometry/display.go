// Package geometry provides display bounds and the pure placement, snapping and
// restore algorithms used to position bubbles and panels.
package geometry

import (
	"sync"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Display represents a physical display.
type Display struct {
	Index   int
	Name    string
	Bounds  model.Rect // Full monitor geometry
	Visible model.Rect // Work area, excluding panels and docks
	Primary bool
}

// Frame returns the visible frame, falling back to the full bounds when the
// work area is unknown.
func (d Display) Frame() model.Rect {
	if d.Visible.IsEmpty() {
		return d.Bounds
	}
	return d.Visible
}

// Provider reports the currently available displays.
type Provider interface {
	Displays() []Display
}

// Primary returns the primary display, or the first one when none is flagged.
func Primary(displays []Display) (Display, bool) {
	if len(displays) == 0 {
		return Display{}, false
	}
	for _, d := range displays {
		if d.Primary {
			return d, true
		}
	}
	return displays[0], true
}

// ByIndex returns the display with the given index.
func ByIndex(displays []Display, index int) (Display, bool) {
	for _, d := range displays {
		if d.Index == index {
			return d, true
		}
	}
	return Display{}, false
}

// Containing returns the display whose frame contains p.
func Containing(displays []Display, p model.Point) (Display, bool) {
	for _, d := range displays {
		if d.Frame().Contains(p) {
			return d, true
		}
	}
	return Display{}, false
}

// Static is a Provider with a fixed, replaceable display list.
type Static struct {
	mu       sync.RWMutex
	displays []Display
}

// NewStatic creates a provider reporting the given displays.
func NewStatic(displays ...Display) *Static {
	s := &Static{}
	s.Set(displays...)
	return s
}

// Set replaces the display list (e.g. after a monitor was unplugged).
func (s *Static) Set(displays ...Display) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displays = append([]Display(nil), displays...)
}

// Displays implements Provider.
func (s *Static) Displays() []Display {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Display(nil), s.displays...)
}
