package input

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/bubbleshell/internal/adapter/output"
	"github.com/jmylchreest/bubbleshell/internal/store"
)

// FileSource reads saved bubbles from the session file while no daemon runs.
type FileSource struct {
	persistence *store.JSONPersistence
	logger      *slog.Logger

	mu      sync.Mutex
	watcher *store.FileWatcher
}

// NewFileSource creates a source for path, or the default location when empty.
func NewFileSource(path string) (*FileSource, error) {
	resolved, err := store.ResolvePath(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{
		persistence: store.NewJSONPersistence(resolved, nil),
		logger:      slog.Default(),
	}, nil
}

// Name returns the source identifier.
func (s *FileSource) Name() string {
	return "file"
}

// Path returns the session file location.
func (s *FileSource) Path() string {
	return s.persistence.Path()
}

// List returns the saved bubbles in file order.
func (s *FileSource) List(_ context.Context) ([]output.Session, error) {
	records, err := s.persistence.LoadAll()
	if err != nil {
		return nil, &AdapterError{Source: "file", Message: "failed to read session file", Err: err}
	}
	sessions := make([]output.Session, 0, len(records))
	for _, r := range records {
		sessions = append(sessions, output.FromRecord(r))
	}
	return sessions, nil
}

// Watch ticks whenever the session file is rewritten.
func (s *FileSource) Watch(ctx context.Context) (<-chan struct{}, error) {
	out := make(chan struct{}, 1)
	var (
		outMu  sync.Mutex
		closed bool
	)
	watcher, err := store.NewFileWatcher(s.Path(), func() {
		outMu.Lock()
		defer outMu.Unlock()
		if closed {
			return
		}
		select {
		case out <- struct{}{}:
		default:
		}
	}, s.logger)
	if err != nil {
		return nil, err
	}
	if err := watcher.Start(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = watcher.Stop()
		outMu.Lock()
		closed = true
		close(out)
		outMu.Unlock()
	}()
	return out, nil
}

// Close stops any watcher.
func (s *FileSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return s.watcher.Stop()
	}
	return nil
}
