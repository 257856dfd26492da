// Package store persists the bubble session snapshot to disk.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmylchreest/bubbleshell/internal/model"
)

// Persistence defines the interface for session storage.
// The snapshot is always written whole; there are no incremental updates.
type Persistence interface {
	// LoadAll reads every saved record. A missing file yields no records and no error.
	LoadAll() ([]model.Record, error)

	// SaveAll replaces the stored snapshot with records.
	SaveAll(records []model.Record) error
}

// Sentinel errors.
const (
	ErrCorruptFile  = storeError("session file is corrupt")
	ErrWriterClosed = storeError("writer is closed")
)

type storeError string

func (e storeError) Error() string {
	return string(e)
}

// JSONPersistence implements Persistence as a single JSON array file.
type JSONPersistence struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewJSONPersistence creates a JSONPersistence for path.
// The parent directory is created on the first save.
func NewJSONPersistence(path string, logger *slog.Logger) *JSONPersistence {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONPersistence{
		path:   path,
		logger: logger,
	}
}

// Path returns the file path.
func (p *JSONPersistence) Path() string {
	return p.path
}

// LoadAll reads all records.
// A file that cannot be parsed is moved aside and reported as ErrCorruptFile so the
// next save starts from a clean file. Individual invalid records are skipped.
func (p *JSONPersistence) LoadAll() ([]model.Record, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := os.ReadFile(p.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", p.path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw []model.Record
	if err := json.Unmarshal(data, &raw); err != nil {
		backup, moveErr := p.moveAside()
		if moveErr != nil {
			p.logger.Warn("failed to move corrupt session file aside", "path", p.path, "error", moveErr)
		} else {
			p.logger.Warn("session file corrupt, moved aside", "path", p.path, "backup", backup)
		}
		return nil, fmt.Errorf("%w: %w", ErrCorruptFile, err)
	}

	records := make([]model.Record, 0, len(raw))
	seen := make(map[model.SessionID]bool, len(raw))
	for _, r := range raw {
		if err := r.Validate(); err != nil {
			p.logger.Debug("skipping invalid session record", "id", r.ID, "error", err)
			continue
		}
		if seen[r.ID] {
			p.logger.Debug("skipping duplicate session record", "id", r.ID)
			continue
		}
		seen[r.ID] = true
		records = append(records, r)
	}

	return records, nil
}

// SaveAll writes records atomically via a temp file and rename.
func (p *JSONPersistence) SaveAll(records []model.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if records == nil {
		records = []model.Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	tmpPath := p.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, p.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s: %w", tmpPath, err)
	}

	return nil
}

func (p *JSONPersistence) moveAside() (string, error) {
	backupPath := p.path + ".corrupted." + time.Now().Format("20060102-150405")
	if err := os.Rename(p.path, backupPath); err != nil {
		return "", err
	}
	return backupPath, nil
}

// IsCorrupt reports whether err came from an unreadable session file.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorruptFile)
}
