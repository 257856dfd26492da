// Package tui provides the BubbleTea-based terminal user interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/bubbleshell/internal/adapter/input"
	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
	"github.com/jmylchreest/bubbleshell/internal/config"
)

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeNew
	ModeHelp
)

// callTimeout bounds every daemon round trip.
const callTimeout = 5 * time.Second

// errReadOnly is reported for intents while no daemon is running.
var errReadOnly = errors.New("daemon not running, session list is read-only")

// Model is the main TUI model.
type Model struct {
	// Configuration
	cfg    *config.Config
	source input.Source
	ctrl   input.Controller

	// Current mode
	mode Mode

	// Components
	list     list.Model
	urlInput textinput.Model
	help     help.Model

	// State
	sessions []output.Session
	width    int
	height   int
	ready    bool

	// Key bindings
	keys KeyMap

	// Status message
	statusMsg string
	statusErr bool

	// Change notifications from the source
	changes <-chan struct{}
}

// sessionItem wraps a session for the list component.
type sessionItem struct {
	session output.Session
	fullURL bool
}

func (i sessionItem) Title() string {
	if i.fullURL {
		return i.session.URL
	}
	return displayHost(i.session.URL)
}

func (i sessionItem) Description() string {
	desc := i.session.State
	if !i.session.CreatedAt.IsZero() {
		desc += " · " + humanize.Time(i.session.CreatedAt)
	}
	if i.session.Popup {
		desc += " · popup"
	}
	return desc + " · " + i.session.ID
}

func (i sessionItem) FilterValue() string {
	return i.session.URL + " " + i.session.ID
}

// displayHost returns the host of raw, or raw itself when it has none.
func displayHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if raw == "" {
			return "(blank)"
		}
		return raw
	}
	return u.Host
}

// sessionDelegate is a custom list delegate for styling sessions.
type sessionDelegate struct {
	list.DefaultDelegate
}

func newSessionDelegate() sessionDelegate {
	return sessionDelegate{DefaultDelegate: list.NewDefaultDelegate()}
}

// Render renders a list item, dimming saved sessions and marking expanded ones.
func (d sessionDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	si, ok := item.(sessionItem)
	if !ok {
		d.DefaultDelegate.Render(w, m, index, item)
		return
	}

	isSelected := index == m.Index()
	itemWidth := m.Width() - d.DefaultDelegate.Styles.NormalTitle.GetHorizontalPadding()

	titleStyle := d.DefaultDelegate.Styles.NormalTitle
	descStyle := d.DefaultDelegate.Styles.NormalDesc
	if isSelected {
		titleStyle = d.DefaultDelegate.Styles.SelectedTitle
		descStyle = d.DefaultDelegate.Styles.SelectedDesc
	}
	if si.session.State == output.StateSaved {
		titleStyle = titleStyle.Foreground(lipgloss.Color("8"))
		descStyle = descStyle.Foreground(lipgloss.Color("8"))
	}

	title := stateMarker(si.session.State) + " " + si.Title()
	desc := si.Description()
	if itemWidth > 0 {
		title = truncateWidth(title, itemWidth)
		desc = truncateWidth(desc, itemWidth)
	}

	fmt.Fprint(w, titleStyle.Render(title))
	fmt.Fprint(w, "\n")
	fmt.Fprint(w, descStyle.Render(desc))
}

func stateMarker(state string) string {
	switch state {
	case "expanded":
		return "▣"
	case "collapsing":
		return "◐"
	case output.StateSaved:
		return "○"
	default:
		return "●"
	}
}

func truncateWidth(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes))+1 > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// Options configures a Model.
type Options struct {
	Config *config.Config
	Source input.Source
	// Controller is nil when no daemon is running.
	Controller input.Controller
	// Changes ticks when the listing should be reloaded.
	Changes <-chan struct{}
}

// New creates a new TUI model.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	l := list.New(nil, newSessionDelegate(), 0, 0)
	l.Title = "Bubbles"
	if opts.Controller == nil {
		l.Title = "Bubbles (saved)"
	}
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	urlInput := textinput.New()
	urlInput.Placeholder = "https://"
	urlInput.CharLimit = 2048

	return Model{
		cfg:      cfg,
		source:   opts.Source,
		ctrl:     opts.Controller,
		mode:     ModeList,
		list:     l,
		urlInput: urlInput,
		help:     help.New(),
		keys:     DefaultKeyMap(),
		changes:  opts.Changes,
	}
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadSessions,
		m.watchForChanges,
	)
}

type sessionsMsg struct {
	sessions []output.Session
	err      error
}

// loadSessions fetches sessions from the source.
func (m Model) loadSessions() tea.Msg {
	if m.source == nil {
		return sessionsMsg{}
	}
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	sessions, err := m.source.List(ctx)
	return sessionsMsg{sessions: sessions, err: err}
}

type refreshMsg struct{}

// watchForChanges waits for the next change tick.
func (m Model) watchForChanges() tea.Msg {
	if m.changes == nil {
		return nil
	}
	if _, ok := <-m.changes; !ok {
		return nil
	}
	return refreshMsg{}
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

type actionResultMsg struct {
	text string
	err  error
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.list.SetSize(msg.Width, msg.Height-2)
		return m, nil

	case sessionsMsg:
		if msg.err != nil {
			return m, showStatus("Load failed: "+msg.err.Error(), true)
		}
		m.sessions = msg.sessions
		m.list.SetItems(m.buildListItems())
		return m, nil

	case refreshMsg:
		return m, tea.Batch(m.loadSessions, m.watchForChanges)

	case actionResultMsg:
		if msg.err != nil {
			return m, showStatus(msg.err.Error(), true)
		}
		return m, tea.Batch(m.loadSessions, showStatus(msg.text, false))

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, showStatus("Copy failed: "+msg.err.Error(), true)
		}
		return m, showStatus("Copied to clipboard", false)
	}

	var cmd tea.Cmd
	switch m.mode {
	case ModeList:
		m.list, cmd = m.list.Update(msg)
	case ModeNew:
		m.urlInput, cmd = m.urlInput.Update(msg)
	}
	return m, cmd
}

func showStatus(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// The list owns every key while its filter prompt is open
	if m.mode == ModeList && m.list.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		return m, cmd
	}

	if m.mode == ModeNew {
		return m.handleNewKey(msg)
	}

	// Global keys
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeList
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	}

	if m.mode == ModeHelp {
		if key.Matches(msg, m.keys.Back) {
			m.mode = ModeList
		}
		return m, nil
	}

	return m.handleListKey(msg)
}

// handleListKey handles keys in list mode.
func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Expand):
		return m, m.onSelected(func(ctx context.Context, id string) error {
			return m.ctrl.Expand(ctx, id)
		}, "Expanded")

	case key.Matches(msg, m.keys.Collapse):
		return m, m.onSelected(func(ctx context.Context, id string) error {
			return m.ctrl.Collapse(ctx, id)
		}, "Collapsed")

	case key.Matches(msg, m.keys.Close):
		return m, m.onSelected(func(ctx context.Context, id string) error {
			return m.ctrl.CloseSession(ctx, id)
		}, "Closed")

	case key.Matches(msg, m.keys.Toggle):
		return m, m.intent(func(ctx context.Context) error {
			return m.ctrl.ToggleAll(ctx)
		}, "Toggled all bubbles")

	case key.Matches(msg, m.keys.New):
		if m.ctrl == nil {
			return m, showStatus(errReadOnly.Error(), true)
		}
		m.mode = ModeNew
		m.urlInput.SetValue("")
		m.urlInput.Focus()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.CopyURL):
		if item, ok := m.list.SelectedItem().(sessionItem); ok {
			return m, m.copyToClipboard(item.session.URL)
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadSessions
	}

	// Pass to list
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleNewKey handles keys while entering a URL for a new bubble.
func (m Model) handleNewKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeList
		m.urlInput.Blur()
		return m, nil

	case tea.KeyEnter:
		target := m.urlInput.Value()
		m.mode = ModeList
		m.urlInput.Blur()
		return m, m.intent(func(ctx context.Context) error {
			_, err := m.ctrl.NewBubble(ctx, target)
			return err
		}, "Created bubble")
	}

	var cmd tea.Cmd
	m.urlInput, cmd = m.urlInput.Update(msg)
	return m, cmd
}

// onSelected runs fn against the selected session.
func (m Model) onSelected(fn func(ctx context.Context, id string) error, done string) tea.Cmd {
	item, ok := m.list.SelectedItem().(sessionItem)
	if !ok {
		return nil
	}
	id := item.session.ID
	return m.intent(func(ctx context.Context) error {
		return fn(ctx, id)
	}, done)
}

// intent runs fn against the daemon and reports the result.
func (m Model) intent(fn func(ctx context.Context) error, done string) tea.Cmd {
	if m.ctrl == nil {
		return showStatus(errReadOnly.Error(), true)
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		return actionResultMsg{text: done, err: fn(ctx)}
	}
}

// buildListItems creates list items from current sessions.
func (m Model) buildListItems() []list.Item {
	items := make([]list.Item, 0, len(m.sessions))
	for _, s := range m.sessions {
		items = append(items, sessionItem{session: s, fullURL: m.cfg.TUI.ShowURLs})
	}
	return items
}

// copyToClipboard copies text to the system clipboard.
func (m Model) copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text, m.cfg)}
	}
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeList:
		return m.viewList()
	case ModeNew:
		return m.viewNew()
	case ModeHelp:
		return m.viewHelp()
	default:
		return ""
	}
}

func (m Model) viewList() string {
	s := m.list.View()

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		s += "\n" + statusStyle.Render(m.statusMsg)
	} else if m.cfg.TUI.ShowHelp {
		s += "\n" + m.buildKeybindBar(m.width, ModeList)
	}

	return s
}

func (m Model) viewNew() string {
	prompt := lipgloss.NewStyle().Bold(true).Render("New bubble: ")
	return prompt + m.urlInput.View() + "\n\n" + m.list.View() + "\n" + m.buildKeybindBar(m.width, ModeNew)
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	m.help.ShowAll = true
	m.help.Width = m.width

	s := titleStyle.Render("Keyboard Shortcuts") + "\n\n"
	s += m.help.View(m.keys)
	s += "\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(
		"Press ? or esc to return")
	return s
}

type keybind struct {
	key  string
	desc string
}

// buildKeybindBar builds a keybind bar that fits within the given width.
func (m Model) buildKeybindBar(width int, mode Mode) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind
	switch mode {
	case ModeList:
		// Most important first
		binds = []keybind{
			{"q", "quit"},
			{"enter", "expand"},
			{"c", "collapse"},
			{"x", "close"},
			{"?", "help"},
			{"n", "new"},
			{"t", "toggle"},
			{"/", "filter"},
			{"y", "copy url"},
			{"r", "refresh"},
		}
	case ModeNew:
		binds = []keybind{
			{"enter", "create"},
			{"esc", "cancel"},
		}
	}

	const separator = "  "
	result := ""
	for _, b := range binds {
		item := keyStyle.Render(b.key) + " " + b.desc
		next := lipgloss.Width(result) + lipgloss.Width(b.key+" "+b.desc)
		if result != "" {
			next += len(separator)
		}
		if width > 0 && next > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += item
	}

	return style.Render(result)
}

// RunOptions configures the TUI.
type RunOptions struct {
	Config     *config.Config
	Source     input.Source
	Controller input.Controller
}

// Run starts the TUI with the given options.
func Run(opts RunOptions) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := opts.Source.Watch(ctx)
	if err != nil {
		// Manual refresh still works
		fmt.Fprintf(os.Stderr, "Warning: failed to watch %s for changes: %v\n", opts.Source.Name(), err)
	}

	m := New(Options{
		Config:     opts.Config,
		Source:     opts.Source,
		Controller: opts.Controller,
		Changes:    changes,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	_, err = p.Run()
	return err
}
