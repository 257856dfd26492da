package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// JSONFormatter formats sessions as JSON.
type JSONFormatter struct {
	opts FormatterOptions
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter(opts FormatterOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Format writes sessions as a JSON array.
func (f *JSONFormatter) Format(w io.Writer, sessions []Session) error {
	if sessions == nil {
		sessions = []Session{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(sessions)
}

// YAMLFormatter formats sessions as a YAML sequence.
type YAMLFormatter struct {
	opts FormatterOptions
}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter(opts FormatterOptions) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// Format writes sessions as YAML.
func (f *YAMLFormatter) Format(w io.Writer, sessions []Session) error {
	if sessions == nil {
		sessions = []Session{}
	}
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(sessions); err != nil {
		return err
	}
	return encoder.Close()
}
