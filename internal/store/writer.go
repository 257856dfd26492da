package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Writer persists snapshots in the background.
// Save never blocks on disk: it replaces the pending snapshot and wakes the
// writer goroutine, so a burst of mutations results in a single write of the
// latest state. Failures are logged and not retried; the next Save supersedes.
type Writer struct {
	persistence Persistence
	logger      *slog.Logger

	mu      sync.Mutex
	pending []model.Record
	dirty   bool
	closed  bool
	onError func(error)
	onWrite func()
	lastErr error // Result of the most recent write

	// writeMu serializes SaveAll calls so Flush observes every earlier Save.
	writeMu sync.Mutex

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

// NewWriter creates and starts a Writer.
func NewWriter(p Persistence, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Writer{
		persistence: p,
		logger:      logger,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	go w.run()
	return w
}

// SetErrorHandler sets a callback invoked after a failed write.
func (w *Writer) SetErrorHandler(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = fn
}

// SetWriteHandler sets a callback invoked after a successful write.
func (w *Writer) SetWriteHandler(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onWrite = fn
}

// Save schedules records to be written. The slice must not be modified afterwards.
func (w *Writer) Save(records []model.Record) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Debug("dropping snapshot, writer closed", "records", len(records))
		return
	}
	w.pending = records
	w.dirty = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
		// Already signalled
	}
}

// Flush synchronously writes the pending snapshot, if any.
// On return every snapshot passed to Save before the call is on disk, and the
// error of the most recent write is returned, even when the background
// goroutine performed it.
func (w *Writer) Flush(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.drain()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the background goroutine after writing any pending snapshot.
// Saves after Close are dropped.
func (w *Writer) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		err := w.lastErr
		w.mu.Unlock()
		return err
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)

	select {
	case <-w.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}

	return w.Flush(ctx)
}

func (w *Writer) run() {
	defer close(w.stopped)

	for {
		select {
		case <-w.wake:
			_ = w.drain()
		case <-w.done:
			return
		}
	}
}

// drain writes the latest pending snapshot.
func (w *Writer) drain() error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.Lock()
	if !w.dirty {
		err := w.lastErr
		w.mu.Unlock()
		return err
	}
	records := w.pending
	w.pending = nil
	w.dirty = false
	onError := w.onError
	onWrite := w.onWrite
	w.mu.Unlock()

	err := w.persistence.SaveAll(records)

	w.mu.Lock()
	w.lastErr = err
	w.mu.Unlock()

	if err != nil {
		w.logger.Warn("failed to persist sessions", "records", len(records), "error", err)
		if onError != nil {
			onError(err)
		}
		return err
	}

	w.logger.Debug("persisted sessions", "records", len(records))
	if onWrite != nil {
		onWrite()
	}
	return nil
}
