// Package input provides session sources for the CLI and TUI.
package input

import (
	"context"

	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
)

// Source lists sessions from a running daemon or from the session file.
type Source interface {
	// Name returns the source identifier ("daemon" or "file").
	Name() string

	// List returns the current sessions in display order.
	List(ctx context.Context) ([]output.Session, error)

	// Watch delivers a value whenever the listing may have changed.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases the source.
	Close() error
}

// Controller sends intents to a running daemon.
type Controller interface {
	NewBubble(ctx context.Context, url string) (string, error)
	Expand(ctx context.Context, id string) error
	Collapse(ctx context.Context, id string) error
	CloseSession(ctx context.Context, id string) error
	Move(ctx context.Context, id string, x, y int) error
	ToggleAll(ctx context.Context) error
}

// Detect returns a daemon source when one is running on the session bus.
// Otherwise it returns a read-only source over the session file at path.
func Detect(ctx context.Context, path string) (Source, Controller, error) {
	daemon, err := NewDaemonSource(ctx)
	if err == nil {
		return daemon, daemon.Client(), nil
	}

	file, ferr := NewFileSource(path)
	if ferr != nil {
		return nil, nil, &AdapterError{
			Source:  "file",
			Message: "no daemon running and session file unavailable",
			Err:     ferr,
		}
	}
	return file, nil, nil
}

// AdapterError represents a source-related error.
type AdapterError struct {
	Source  string
	Message string
	Err     error
}

func (e *AdapterError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}
