package daemon

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/bubbleshell/internal/config"
)

type reloadRecorder struct {
	mu      sync.Mutex
	configs []*config.DaemonConfig
	errs    []error
}

func (r *reloadRecorder) reloaded(cfg *config.DaemonConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs = append(r.configs, cfg)
}

func (r *reloadRecorder) failed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *reloadRecorder) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.configs), len(r.errs)
}

func startWatcher(t *testing.T) (string, *ConfigWatcher, *reloadRecorder) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bubbleshelld.toml")

	rec := &reloadRecorder{}
	w := NewConfigWatcherFor(path, nil)
	w.SetReloadCallback(rec.reloaded)
	w.SetErrorCallback(rec.failed)

	initial := config.DefaultDaemonConfig()
	require.NoError(t, w.Start(initial))
	t.Cleanup(w.Stop)

	assert.Same(t, initial, w.GetCurrentConfig())
	return path, w, rec
}

func TestConfigWatcher_ReloadsValidChange(t *testing.T) {
	path, w, rec := startWatcher(t)

	cfg := config.DefaultDaemonConfig()
	cfg.Placement.PerColumn = 4
	require.NoError(t, config.SaveDaemonConfig(cfg, path))

	assert.Eventually(t, func() bool {
		n, _ := rec.counts()
		return n >= 1
	}, 2*time.Second, 20*time.Millisecond)

	assert.Equal(t, 4, w.GetCurrentConfig().Placement.PerColumn)
}

func TestConfigWatcher_InvalidChangeKeepsCurrent(t *testing.T) {
	path, w, rec := startWatcher(t)
	before := w.GetCurrentConfig()

	require.NoError(t, os.WriteFile(path, []byte("[placement]\nper_column = 0\n"), 0600))

	assert.Eventually(t, func() bool {
		_, n := rec.counts()
		return n >= 1
	}, 2*time.Second, 20*time.Millisecond)

	reloads, _ := rec.counts()
	assert.Zero(t, reloads)
	assert.Same(t, before, w.GetCurrentConfig())
}

func TestConfigWatcher_StopIsIdempotent(t *testing.T) {
	w := NewConfigWatcherFor(filepath.Join(t.TempDir(), "bubbleshelld.toml"), nil)
	w.Stop()

	require.NoError(t, w.Start(nil))
	require.NoError(t, w.Start(nil))
	w.Stop()
	w.Stop()
}

func TestConfigWatcher_MissingDirectory(t *testing.T) {
	w := NewConfigWatcherFor(filepath.Join(t.TempDir(), "missing", "bubbleshelld.toml"), nil)
	assert.Error(t, w.Start(nil))
	w.Stop()
}
