package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"
)

// DmenuFormatter formats sessions for dmenu/rofi/fuzzel, one per line.
// The id is always the last field so a selection can be piped back.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}

	// Parse custom template if provided
	if opts.Template != "" {
		tmpl, err := template.New("dmenu").Funcs(templateFuncs(opts)).Parse(opts.Template)
		if err == nil {
			f.template = tmpl
		}
	}

	return f
}

// Format writes sessions in dmenu format.
func (f *DmenuFormatter) Format(w io.Writer, sessions []Session) error {
	for i := range sessions {
		line := f.formatLine(i+1, &sessions[i])
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func (f *DmenuFormatter) formatLine(index int, s *Session) string {
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, newTemplateData(index, s, f.opts)); err == nil {
			return buf.String()
		}
	}

	var parts []string
	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}

	if f.opts.ShowIndex {
		parts = append(parts, fmt.Sprintf("%d", index))
	}
	if f.opts.ShowAge && !s.CreatedAt.IsZero() {
		parts = append(parts, age(s.CreatedAt, f.opts.clock()))
	}
	parts = append(parts, s.State, truncate(s.URL, f.opts.URLMaxLen), s.ID)

	return strings.Join(parts, sep)
}

// ParseDmenuSelection extracts the session id from a line written by DmenuFormatter.
func ParseDmenuSelection(line, separator string) string {
	if separator == "" {
		separator = " | "
	}
	if trimmed := strings.TrimSpace(separator); trimmed != "" {
		separator = trimmed
	}
	line = strings.TrimSpace(line)
	if i := strings.LastIndex(line, separator); i >= 0 {
		line = line[i+len(separator):]
	}
	return strings.TrimSpace(line)
}

// templateData provides data for custom templates.
type templateData struct {
	Index   int
	Session *Session
	Age     string
}

func newTemplateData(index int, s *Session, opts FormatterOptions) templateData {
	d := templateData{Index: index, Session: s}
	if !s.CreatedAt.IsZero() {
		d.Age = age(s.CreatedAt, opts.clock())
	}
	return d
}

// templateFuncs returns template helper functions.
func templateFuncs(opts FormatterOptions) template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"age": func(t time.Time) string {
			return age(t, opts.clock())
		},
		"stateIcon": func(state string) string {
			switch state {
			case "expanded":
				return "▣"
			case "collapsing":
				return "◐"
			case StateSaved:
				return "○"
			default:
				return "●"
			}
		},
	}
}

// age returns a humanized age such as "3 minutes ago".
func age(created, now time.Time) string {
	return humanize.RelTime(created, now, "ago", "from now")
}

// truncate shortens s to maxLen runes including an ellipsis.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if maxLen <= 0 || len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
