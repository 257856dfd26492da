// Package output provides output formatters for bubble sessions.
package output

import (
	"io"
	"time"

	"github.com/jmylchreest/bubbleshell/internal/config"
	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Session is the listing form of one session, from the daemon or the session file.
type Session struct {
	ID           string    `json:"id" yaml:"id"`
	URL          string    `json:"url" yaml:"url"`
	State        string    `json:"state" yaml:"state"`
	X            int       `json:"x" yaml:"x"`
	Y            int       `json:"y" yaml:"y"`
	DisplayIndex int       `json:"display_index" yaml:"display_index"`
	Popup        bool      `json:"popup,omitempty" yaml:"popup,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
}

// StateSaved marks sessions read from the session file while no daemon runs.
const StateSaved = "saved"

// FromRecord converts a persisted record.
func FromRecord(r model.Record) Session {
	s := Session{
		ID:           r.ID.String(),
		URL:          r.URL,
		State:        StateSaved,
		X:            r.Position.X,
		Y:            r.Position.Y,
		DisplayIndex: r.DisplayIndex,
	}
	s.CreatedAt, _ = r.ID.CreatedAt()
	return s
}

// WithCreatedAt fills CreatedAt from the ULID in the id.
func (s Session) WithCreatedAt() Session {
	s.CreatedAt, _ = model.SessionID(s.ID).CreatedAt()
	return s
}

// Formatter formats sessions for output.
type Formatter interface {
	// Format writes formatted sessions to the writer.
	Format(w io.Writer, sessions []Session) error
}

// NewFormatter creates a formatter for the specified format name.
func NewFormatter(format string, opts FormatterOptions) Formatter {
	switch format {
	case config.FormatJSON:
		return NewJSONFormatter(opts)
	case config.FormatYAML:
		return NewYAMLFormatter(opts)
	case config.FormatDmenu:
		return NewDmenuFormatter(opts)
	case config.FormatIDs:
		return NewIDsFormatter()
	case config.FormatPlain:
		fallthrough
	default:
		return NewPlainFormatter(opts)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template  string // Custom template for dmenu/plain format
	ShowIndex bool   // Show 1-based index prefix
	ShowAge   bool   // Show humanized age
	URLMaxLen int    // Maximum URL length (0 = unlimited)
	Separator string // Field separator for dmenu format

	now func() time.Time
}

// DefaultFormatterOptions returns sensible defaults for listing.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex: true,
		ShowAge:   true,
		URLMaxLen: 80,
		Separator: " | ",
	}
}

func (o FormatterOptions) clock() time.Time {
	if o.now != nil {
		return o.now()
	}
	return time.Now()
}
