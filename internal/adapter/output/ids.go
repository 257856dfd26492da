package output

import (
	"fmt"
	"io"
)

// IDsFormatter outputs just the session IDs, one per line.
// Useful for piping to other commands (e.g., bubbleshell close --stdin).
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes session IDs to the writer, one per line.
func (f *IDsFormatter) Format(w io.Writer, sessions []Session) error {
	for _, s := range sessions {
		if _, err := fmt.Fprintln(w, s.ID); err != nil {
			return err
		}
	}
	return nil
}
