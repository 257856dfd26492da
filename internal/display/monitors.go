package display

import (
	"log/slog"
	"unsafe"

	"github.com/diamondburned/gotk4/pkg/core/glib"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"

	"github.com/jmylchreest/bubbleshell/internal/geometry"
	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Monitors is a geometry.Provider backed by the GDK monitor list.
// GDK may only be queried on the main loop, so the display set is cached and
// refreshed there whenever monitors are plugged or unplugged. Displays is safe
// to call from any goroutine.
type Monitors struct {
	display *gdk.Display
	cache   *geometry.Static
	logger  *slog.Logger
}

// NewMonitors snapshots the monitors of the default display. It must be called
// on the GTK main loop after the application started.
func NewMonitors(logger *slog.Logger) (*Monitors, error) {
	if logger == nil {
		logger = slog.Default()
	}

	display := gdk.DisplayGetDefault()
	if display == nil {
		return nil, &DisplayError{Message: "no display available"}
	}

	m := &Monitors{
		display: display,
		cache:   geometry.NewStatic(),
		logger:  logger,
	}
	m.refresh()

	if monitors := display.Monitors(); monitors != nil {
		monitors.ConnectItemsChanged(func(position, removed, added uint) {
			m.refresh()
		})
	}
	return m, nil
}

// Displays returns the cached display set.
func (m *Monitors) Displays() []geometry.Display {
	return m.cache.Displays()
}

// Monitor returns the GDK monitor for a display index, or nil.
func (m *Monitors) Monitor(index int) *gdk.Monitor {
	monitors := m.display.Monitors()
	if monitors == nil || index < 0 || uint(index) >= monitors.NItems() {
		return nil
	}
	return wrapMonitor(monitors.Item(uint(index)))
}

func (m *Monitors) refresh() {
	monitors := m.display.Monitors()
	if monitors == nil {
		m.logger.Warn("no monitors list available")
		m.cache.Set()
		return
	}

	n := monitors.NItems()
	displays := make([]geometry.Display, 0, n)
	for i := uint(0); i < n; i++ {
		mon := wrapMonitor(monitors.Item(i))
		if mon == nil {
			continue
		}
		rect := mon.Geometry()
		bounds := model.Rect{X: rect.X(), Y: rect.Y(), Width: rect.Width(), Height: rect.Height()}
		displays = append(displays, geometry.Display{
			Index:   int(i),
			Name:    mon.Connector(),
			Bounds:  bounds,
			Visible: bounds, // GTK4 exposes no work area
			Primary: i == 0, // GTK4 has no primary concept; the first monitor stands in
		})
	}

	m.cache.Set(displays...)
	m.logger.Info("monitor configuration changed", "count", len(displays))
}

// wrapMonitor wraps a glib.Object as a gdk.Monitor.
// gotk4 does not export its own wrapper for list model items.
func wrapMonitor(obj *glib.Object) *gdk.Monitor {
	if obj == nil {
		return nil
	}
	// gdk.Monitor only embeds *glib.Object, so the layouts match
	type monitor struct {
		_ [0]func()
		*glib.Object
	}
	m := &monitor{Object: obj}
	return (*gdk.Monitor)(unsafe.Pointer(m))
}

// DisplayError is returned when GTK has no usable display.
type DisplayError struct {
	Message string
}

func (e *DisplayError) Error() string {
	return "display: " + e.Message
}
