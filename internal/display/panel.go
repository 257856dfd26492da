package display

import (
	"github.com/diamondburned/gotk4-adwaita/pkg/adw"
	"github.com/diamondburned/gotk4/pkg/gtk/v4"
	"github.com/diamondburned/gotk4/pkg/pango"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Panel is the expanded representation of a session: a regular toplevel
// window with a header showing the live address. Page content is drawn by the
// web-view host, which attaches itself to Content.
type Panel struct {
	window  *gtk.Window
	title   *gtk.Label
	Content *gtk.Box

	// Last frame applied. GTK4 cannot read a toplevel's position, so only
	// the size is refreshed from the live window.
	frame model.Rect

	onCollapse func()
	onClose    func()
}

// NewPanel creates a hidden panel window sized to frame.
func NewPanel(app *gtk.Application, frame model.Rect) *Panel {
	p := &Panel{frame: frame}

	p.window = gtk.NewWindow()
	p.window.SetApplication(app)
	p.window.SetDefaultSize(frame.Width, frame.Height)

	header := adw.NewHeaderBar()
	p.title = gtk.NewLabel("")
	p.title.SetEllipsize(pango.EllipsizeMiddle)
	header.SetTitleWidget(p.title)

	collapseBtn := gtk.NewButtonFromIconName("go-down-symbolic")
	collapseBtn.SetTooltipText("Collapse to bubble")
	collapseBtn.ConnectClicked(func() {
		if p.onCollapse != nil {
			p.onCollapse()
		}
	})
	header.PackStart(collapseBtn)

	closeBtn := gtk.NewButtonFromIconName("window-close-symbolic")
	closeBtn.SetTooltipText("Close session")
	closeBtn.ConnectClicked(func() {
		if p.onClose != nil {
			p.onClose()
		}
	})
	header.PackEnd(closeBtn)
	header.SetShowEndTitleButtons(false)
	p.window.SetTitlebar(header)

	p.Content = gtk.NewBox(gtk.OrientationVertical, 0)
	p.Content.AddCSSClass("panel-content")
	p.window.SetChild(p.Content)

	// The window manager close button collapses rather than discards
	p.window.ConnectCloseRequest(func() bool {
		if p.onCollapse != nil {
			p.onCollapse()
		}
		return true
	})

	return p
}

// OnCollapse sets the callback for collapse requests.
func (p *Panel) OnCollapse(cb func()) { p.onCollapse = cb }

// OnClose sets the callback for close requests.
func (p *Panel) OnClose(cb func()) { p.onClose = cb }

// SetFrame resizes the panel to frame. It applies the next time the panel is shown.
func (p *Panel) SetFrame(frame model.Rect) {
	if frame.IsEmpty() {
		return
	}
	p.frame = frame
	p.window.SetDefaultSize(frame.Width, frame.Height)
}

// Frame returns the panel's current frame.
func (p *Panel) Frame() model.Rect {
	frame := p.frame
	if w, h := p.window.Width(), p.window.Height(); w > 0 && h > 0 {
		frame.Width, frame.Height = w, h
	}
	return frame
}

// SetURL updates the header.
func (p *Panel) SetURL(url string) {
	p.title.SetText(url)
	p.window.SetTitle(url)
}

// Show presents the panel and focuses it.
func (p *Panel) Show() {
	p.window.Present()
}

// Hide hides the panel without destroying it.
func (p *Panel) Hide() {
	p.window.SetVisible(false)
}

// Destroy releases the window.
func (p *Panel) Destroy() {
	p.window.Destroy()
}
