package display

import (
	"net/url"
	"strings"

	layershell "github.com/diamondburned/gotk4-layer-shell/pkg/gtk4layershell"
	"github.com/diamondburned/gotk4/pkg/gdk/v4"
	"github.com/diamondburned/gotk4/pkg/glib/v2"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Bubble is the collapsed representation of a session: a small layer-shell
// surface on the overlay layer, anchored top-left and offset by margins so it
// sits at an absolute position on its monitor.
type Bubble struct {
	window *gtk.Window
	icon   *gtk.Image
	letter *gtk.Label
	size   int

	position model.Point

	onActivate func()
	onClose    func()
	onDrop     func(pos model.Point)
}

// NewBubble creates a hidden bubble window of size x size pixels.
func NewBubble(app *gtk.Application, size int) *Bubble {
	b := &Bubble{size: size}

	b.window = gtk.NewWindow()
	b.window.SetApplication(app)
	b.window.SetDecorated(false)
	b.window.SetResizable(false)
	b.window.SetDefaultSize(size, size)
	b.window.SetSizeRequest(size, size)

	layershell.InitForWindow(b.window)
	layershell.SetLayer(b.window, layershell.LayerShellLayerOverlay)
	layershell.SetExclusiveZone(b.window, 0)
	layershell.SetKeyboardMode(b.window, layershell.LayerShellKeyboardModeNone)
	layershell.SetNamespace(b.window, "bubbleshell-bubble")
	layershell.SetAnchor(b.window, layershell.LayerShellEdgeTop, true)
	layershell.SetAnchor(b.window, layershell.LayerShellEdgeLeft, true)

	box := gtk.NewBox(gtk.OrientationVertical, 0)
	box.AddCSSClass("bubble")
	box.SetHAlign(gtk.AlignCenter)
	box.SetVAlign(gtk.AlignCenter)

	b.icon = gtk.NewImage()
	b.icon.SetPixelSize(size / 2)
	b.icon.SetVisible(false)
	box.Append(b.icon)

	b.letter = gtk.NewLabel("")
	b.letter.AddCSSClass("title-1")
	box.Append(b.letter)

	b.window.SetChild(box)
	b.connectSignals()
	return b
}

func (b *Bubble) connectSignals() {
	// Left click expands, middle click closes
	clickCtrl := gtk.NewGestureClick()
	clickCtrl.SetButton(0)
	clickCtrl.ConnectReleased(func(nPress int, x, y float64) {
		switch clickCtrl.CurrentButton() {
		case 1:
			if b.onActivate != nil {
				b.onActivate()
			}
		case 2:
			if b.onClose != nil {
				b.onClose()
			}
		}
	})
	b.window.AddController(clickCtrl)

	dragCtrl := gtk.NewGestureDrag()
	dragCtrl.ConnectDragEnd(func(offsetX, offsetY float64) {
		if offsetX == 0 && offsetY == 0 {
			return
		}
		if b.onDrop != nil {
			b.onDrop(b.position.Add(int(offsetX), int(offsetY)))
		}
	})
	b.window.AddController(dragCtrl)
}

// OnActivate sets the callback for a primary click.
func (b *Bubble) OnActivate(cb func()) { b.onActivate = cb }

// OnClose sets the callback for a middle click.
func (b *Bubble) OnClose(cb func()) { b.onClose = cb }

// OnDrop sets the callback for the end of a drag, with the dropped origin.
func (b *Bubble) OnDrop(cb func(pos model.Point)) { b.onDrop = cb }

// Place moves the bubble to pos on monitor, whose frame is frame.
func (b *Bubble) Place(pos model.Point, monitor *gdk.Monitor, frame model.Rect) {
	b.position = pos
	if monitor != nil {
		layershell.SetMonitor(b.window, monitor)
	}
	layershell.SetMargin(b.window, layershell.LayerShellEdgeTop, pos.Y-frame.Y)
	layershell.SetMargin(b.window, layershell.LayerShellEdgeLeft, pos.X-frame.X)
}

// SetURL shows the first letter of the host until a favicon arrives.
func (b *Bubble) SetURL(raw string) {
	b.letter.SetText(hostInitial(raw))
	b.window.SetTooltipText(raw)
}

// SetFavicon shows img, or the host letter if it cannot be decoded.
func (b *Bubble) SetFavicon(img *model.Image) bool {
	if img == nil || len(img.Data) == 0 {
		return false
	}
	texture, err := gdk.NewTextureFromBytes(glib.NewBytes(img.Data))
	if err != nil {
		return false
	}
	b.icon.SetFromPaintable(texture)
	b.icon.SetVisible(true)
	b.letter.SetVisible(false)
	return true
}

// Show presents the bubble.
func (b *Bubble) Show() {
	b.window.SetVisible(true)
}

// Hide hides the bubble without destroying it.
func (b *Bubble) Hide() {
	b.window.SetVisible(false)
}

// Destroy releases the window.
func (b *Bubble) Destroy() {
	b.window.Destroy()
}

// hostInitial returns the upper-case first letter of the URL host.
func hostInitial(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return "•"
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	return strings.ToUpper(host[:1])
}
