package geometry

import (
	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Default placement values.
const (
	DefaultBubbleSize = 56
	DefaultSpacing    = 72
	DefaultPerColumn  = 8
	DefaultMargin     = 16
	DefaultGutter     = 16

	DefaultSnapThreshold = 24
	DefaultSnapInset     = 4
)

// PlacementConfig controls where new bubbles are stacked.
type PlacementConfig struct {
	BubbleSize int // Bubble diameter in pixels
	Spacing    int // Vertical distance between bubble origins
	PerColumn  int // Bubbles per column before wrapping leftward
	Margin     int // Distance from the display's top and right edges
	Gutter     int // Horizontal gap between columns
}

// DefaultPlacementConfig returns the default placement configuration.
func DefaultPlacementConfig() PlacementConfig {
	return PlacementConfig{
		BubbleSize: DefaultBubbleSize,
		Spacing:    DefaultSpacing,
		PerColumn:  DefaultPerColumn,
		Margin:     DefaultMargin,
		Gutter:     DefaultGutter,
	}
}

// SnapConfig controls edge snapping when a bubble is dropped.
type SnapConfig struct {
	Threshold int // Maximum distance from an edge that still snaps
	Inset     int // Distance kept from the edge after snapping
}

// DefaultSnapConfig returns the default snap configuration.
func DefaultSnapConfig() SnapConfig {
	return SnapConfig{
		Threshold: DefaultSnapThreshold,
		Inset:     DefaultSnapInset,
	}
}

// Placement returns the origin for the n-th bubble (0-based) on a display frame.
// Bubbles stack top to bottom along the right edge; every PerColumn entries a new
// column starts one bubble-width-plus-gutter to the left. Only the count matters,
// never which ids exist.
func Placement(n int, frame model.Rect, cfg PlacementConfig) model.Point {
	perColumn := cfg.PerColumn
	if perColumn <= 0 {
		perColumn = DefaultPerColumn
	}
	if n < 0 {
		n = 0
	}

	column := n / perColumn
	row := n % perColumn

	x := frame.MaxX() - cfg.Margin - cfg.BubbleSize - column*(cfg.BubbleSize+cfg.Gutter)
	y := frame.Y + cfg.Margin + row*cfg.Spacing

	return model.Point{X: x, Y: y}
}

// Snap moves a dropped bubble flush against any display edge it was dropped
// within Threshold of. All four edges are checked independently, so a drop near a
// corner snaps on both axes.
func Snap(origin model.Point, size int, frame model.Rect, cfg SnapConfig) model.Point {
	result := origin

	left := origin.X - frame.X
	right := frame.MaxX() - (origin.X + size)
	if abs(left) <= cfg.Threshold && abs(left) <= abs(right) {
		result.X = frame.X + cfg.Inset
	} else if abs(right) <= cfg.Threshold {
		result.X = frame.MaxX() - size - cfg.Inset
	}

	top := origin.Y - frame.Y
	bottom := frame.MaxY() - (origin.Y + size)
	if abs(top) <= cfg.Threshold && abs(top) <= abs(bottom) {
		result.Y = frame.Y + cfg.Inset
	} else if abs(bottom) <= cfg.Threshold {
		result.Y = frame.MaxY() - size - cfg.Inset
	}

	return result
}

// Clamp moves a square of the given size so it is fully inside frame.
func Clamp(origin model.Point, size int, frame model.Rect) model.Point {
	return model.Point{
		X: clampInt(origin.X, frame.X, frame.MaxX()-size),
		Y: clampInt(origin.Y, frame.Y, frame.MaxY()-size),
	}
}

// Restore validates a saved bubble position against the current displays.
// A position still visible on its display (or on any display, after monitors were
// re-indexed) is clamped to full visibility. Anything else is recomputed with
// Placement(count) on the primary display. The returned bool reports recomputation.
func Restore(saved model.Point, displayIndex int, displays []Display, count int, cfg PlacementConfig) (model.Point, int, bool) {
	bubble := model.RectAt(saved, cfg.BubbleSize, cfg.BubbleSize)

	if d, ok := ByIndex(displays, displayIndex); ok && d.Frame().Intersects(bubble) {
		return Clamp(saved, cfg.BubbleSize, d.Frame()), d.Index, false
	}

	for _, d := range displays {
		if d.Frame().Intersects(bubble) {
			return Clamp(saved, cfg.BubbleSize, d.Frame()), d.Index, false
		}
	}

	primary, ok := Primary(displays)
	if !ok {
		// No display information at all; keep the saved value
		return saved, displayIndex, false
	}
	return Placement(count, primary.Frame(), cfg), primary.Index, true
}

// CenteredFrame returns a width x height frame centered on frame, shrunk to fit.
func CenteredFrame(frame model.Rect, width, height int) model.Rect {
	width = min(width, frame.Width)
	height = min(height, frame.Height)
	return model.Rect{
		X:      frame.X + (frame.Width-width)/2,
		Y:      frame.Y + (frame.Height-height)/2,
		Width:  width,
		Height: height,
	}
}

// PanelFrame picks the frame a panel opens with. A saved frame still touching
// a display is reused as is. Otherwise a width x height frame is centered on
// the session's display, or on the primary display when that index is gone.
func PanelFrame(saved model.Rect, displayIndex int, displays []Display, width, height int) model.Rect {
	if !saved.IsEmpty() {
		for _, d := range displays {
			if d.Frame().Intersects(saved) {
				return saved
			}
		}
	}

	d, ok := ByIndex(displays, displayIndex)
	if !ok {
		if d, ok = Primary(displays); !ok {
			return model.Rect{Width: width, Height: height}
		}
	}
	return CenteredFrame(d.Frame(), width, height)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
