package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

var testFrame = model.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}

func TestPlacement_Deterministic(t *testing.T) {
	cfg := DefaultPlacementConfig()

	for n := 0; n < 20; n++ {
		assert.Equal(t, Placement(n, testFrame, cfg), Placement(n, testFrame, cfg))
	}
}

func TestPlacement_FirstColumn(t *testing.T) {
	cfg := DefaultPlacementConfig()

	assert.Equal(t, model.Point{X: 1848, Y: 16}, Placement(0, testFrame, cfg))
	assert.Equal(t, model.Point{X: 1848, Y: 88}, Placement(1, testFrame, cfg))
	assert.Equal(t, model.Point{X: 1848, Y: 16 + 7*72}, Placement(7, testFrame, cfg))
}

func TestPlacement_WrapsEveryEight(t *testing.T) {
	cfg := DefaultPlacementConfig()

	first := Placement(0, testFrame, cfg)
	ninth := Placement(8, testFrame, cfg)

	assert.Equal(t, first.Y, ninth.Y, "row resets on a new column")
	assert.Equal(t, first.X-(56+16), ninth.X, "new column one bubble plus gutter to the left")

	seventeenth := Placement(16, testFrame, cfg)
	assert.Equal(t, first.X-2*(56+16), seventeenth.X)
}

func TestPlacement_RespectsFrameOffset(t *testing.T) {
	cfg := DefaultPlacementConfig()
	second := model.Rect{X: 1920, Y: 30, Width: 2560, Height: 1410}

	assert.Equal(t, model.Point{X: 1920 + 2560 - 16 - 56, Y: 30 + 16}, Placement(0, second, cfg))
}

func TestPlacement_NonPositivePerColumnUsesDefault(t *testing.T) {
	cfg := DefaultPlacementConfig()
	cfg.PerColumn = 0

	assert.Equal(t, Placement(8, testFrame, DefaultPlacementConfig()), Placement(8, testFrame, cfg))
}

func TestSnap(t *testing.T) {
	cfg := DefaultSnapConfig()
	size := 56

	tests := []struct {
		name   string
		origin model.Point
		want   model.Point
	}{
		{"middle stays", model.Point{X: 900, Y: 500}, model.Point{X: 900, Y: 500}},
		{"near left", model.Point{X: 10, Y: 500}, model.Point{X: 4, Y: 500}},
		{"past left edge", model.Point{X: -12, Y: 500}, model.Point{X: 4, Y: 500}},
		{"near right", model.Point{X: 1920 - 56 - 20, Y: 500}, model.Point{X: 1920 - 56 - 4, Y: 500}},
		{"near top", model.Point{X: 900, Y: 24}, model.Point{X: 900, Y: 4}},
		{"near bottom", model.Point{X: 900, Y: 1080 - 56 - 3}, model.Point{X: 900, Y: 1080 - 56 - 4}},
		{"just outside threshold", model.Point{X: 25, Y: 500}, model.Point{X: 25, Y: 500}},
		{"top left corner", model.Point{X: 8, Y: 8}, model.Point{X: 4, Y: 4}},
		{"bottom right corner", model.Point{X: 1920 - 60, Y: 1080 - 60}, model.Point{X: 1920 - 56 - 4, Y: 1080 - 56 - 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Snap(tt.origin, size, testFrame, cfg))
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, model.Point{X: 0, Y: 0}, Clamp(model.Point{X: -30, Y: -5}, 56, testFrame))
	assert.Equal(t, model.Point{X: 1864, Y: 1024}, Clamp(model.Point{X: 1900, Y: 1070}, 56, testFrame))
	assert.Equal(t, model.Point{X: 100, Y: 100}, Clamp(model.Point{X: 100, Y: 100}, 56, testFrame))
}

func TestRestore_OnScreenIsKept(t *testing.T) {
	displays := []Display{{Index: 0, Bounds: testFrame, Primary: true}}
	cfg := DefaultPlacementConfig()

	pos, idx, recomputed := Restore(model.Point{X: 300, Y: 400}, 0, displays, 3, cfg)
	assert.False(t, recomputed)
	assert.Equal(t, 0, idx)
	assert.Equal(t, model.Point{X: 300, Y: 400}, pos)
}

func TestRestore_PartiallyVisibleIsClamped(t *testing.T) {
	displays := []Display{{Index: 0, Bounds: testFrame, Primary: true}}
	cfg := DefaultPlacementConfig()

	pos, _, recomputed := Restore(model.Point{X: 1900, Y: 400}, 0, displays, 0, cfg)
	assert.False(t, recomputed)
	assert.Equal(t, model.Point{X: 1920 - 56, Y: 400}, pos)
}

func TestRestore_OffScreenIsRecomputed(t *testing.T) {
	// Saved on a second monitor that is no longer connected
	displays := []Display{{Index: 0, Bounds: testFrame, Primary: true}}
	cfg := DefaultPlacementConfig()

	pos, idx, recomputed := Restore(model.Point{X: 3000, Y: 200}, 1, displays, 2, cfg)
	assert.True(t, recomputed)
	assert.Equal(t, 0, idx)
	assert.Equal(t, Placement(2, testFrame, cfg), pos)
}

func TestRestore_ReindexedDisplay(t *testing.T) {
	left := model.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	right := model.Rect{X: 1920, Y: 0, Width: 1920, Height: 1080}
	displays := []Display{
		{Index: 0, Bounds: right, Primary: true},
		{Index: 1, Bounds: left},
	}
	cfg := DefaultPlacementConfig()

	// Saved as display 0 but the point now lies on display 1
	pos, idx, recomputed := Restore(model.Point{X: 100, Y: 100}, 0, displays, 0, cfg)
	assert.False(t, recomputed)
	assert.Equal(t, 1, idx)
	assert.Equal(t, model.Point{X: 100, Y: 100}, pos)
}

func TestRestore_UsesVisibleFrame(t *testing.T) {
	displays := []Display{{
		Index:   0,
		Bounds:  testFrame,
		Visible: model.Rect{X: 0, Y: 32, Width: 1920, Height: 1048},
		Primary: true,
	}}
	cfg := DefaultPlacementConfig()

	pos, _, _ := Restore(model.Point{X: 500, Y: 0}, 0, displays, 0, cfg)
	assert.Equal(t, model.Point{X: 500, Y: 32}, pos)
}

func TestCenteredFrame(t *testing.T) {
	r := CenteredFrame(testFrame, 800, 600)
	assert.Equal(t, model.Rect{X: 560, Y: 240, Width: 800, Height: 600}, r)

	small := model.Rect{X: 10, Y: 10, Width: 400, Height: 300}
	assert.Equal(t, small, CenteredFrame(small, 800, 600))
}

func TestPanelFrame(t *testing.T) {
	second := model.Rect{X: 1920, Y: 0, Width: 2560, Height: 1440}
	displays := []Display{
		{Index: 0, Bounds: testFrame, Primary: true},
		{Index: 1, Bounds: second},
	}

	t.Run("saved frame is reused", func(t *testing.T) {
		saved := model.Rect{X: 2000, Y: 100, Width: 640, Height: 900}
		assert.Equal(t, saved, PanelFrame(saved, 1, displays, 480, 720))
	})

	t.Run("unset frame centers on the session display", func(t *testing.T) {
		got := PanelFrame(model.Rect{}, 1, displays, 480, 720)
		assert.Equal(t, CenteredFrame(second, 480, 720), got)
	})

	t.Run("off-screen frame falls back to the primary display", func(t *testing.T) {
		saved := model.Rect{X: 9000, Y: 9000, Width: 640, Height: 900}
		got := PanelFrame(saved, 5, displays, 480, 720)
		assert.Equal(t, CenteredFrame(testFrame, 480, 720), got)
	})

	t.Run("no displays keeps the size", func(t *testing.T) {
		assert.Equal(t, model.Rect{Width: 480, Height: 720}, PanelFrame(model.Rect{}, 0, nil, 480, 720))
	})
}

func TestStatic(t *testing.T) {
	s := NewStatic(Display{Index: 0, Bounds: testFrame})

	primary, ok := Primary(s.Displays())
	require.True(t, ok)
	assert.Equal(t, 0, primary.Index)

	s.Set(
		Display{Index: 0, Bounds: testFrame},
		Display{Index: 1, Bounds: model.Rect{X: 1920, Width: 1920, Height: 1080}, Primary: true},
	)
	primary, ok = Primary(s.Displays())
	require.True(t, ok)
	assert.Equal(t, 1, primary.Index)

	d, ok := Containing(s.Displays(), model.Point{X: 2000, Y: 10})
	require.True(t, ok)
	assert.Equal(t, 1, d.Index)

	_, ok = ByIndex(s.Displays(), 5)
	assert.False(t, ok)

	_, ok = Primary(nil)
	assert.False(t, ok)
}
