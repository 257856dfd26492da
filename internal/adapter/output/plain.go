package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

// PlainFormatter formats sessions as aligned plain text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("plain").Funcs(templateFuncs(opts)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes sessions as plain text, one per line.
func (f *PlainFormatter) Format(w io.Writer, sessions []Session) error {
	for i := range sessions {
		if err := f.formatSession(w, i+1, &sessions[i]); err != nil {
			return err
		}
	}
	return nil
}

func (f *PlainFormatter) formatSession(w io.Writer, index int, s *Session) error {
	if f.template != nil {
		if err := f.template.Execute(w, newTemplateData(index, s, f.opts)); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n")
		return err
	}

	var sb strings.Builder

	if f.opts.ShowIndex {
		sb.WriteString(fmt.Sprintf("[%d] ", index))
	}

	sb.WriteString(fmt.Sprintf("%-10s ", s.State))
	sb.WriteString(truncate(s.URL, f.opts.URLMaxLen))

	if f.opts.ShowAge && !s.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf(" (%s)", age(s.CreatedAt, f.opts.clock())))
	}

	sb.WriteString("\n    " + s.ID)
	if !s.Popup {
		sb.WriteString(fmt.Sprintf(" at %d,%d on display %d", s.X, s.Y, s.DisplayIndex))
	}
	sb.WriteString("\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// FormatField outputs a specific field from a session.
func FormatField(s *Session, field string) string {
	switch strings.ToLower(field) {
	case "id":
		return s.ID
	case "url":
		return s.URL
	case "state":
		return s.State
	case "position", "pos":
		return fmt.Sprintf("%d,%d", s.X, s.Y)
	case "display", "display_index":
		return fmt.Sprintf("%d", s.DisplayIndex)
	default:
		return s.URL
	}
}
