package store

import (
	"os"
	"path/filepath"
)

// DataDir returns the path to the bubbleshell data directory.
// Uses XDG_DATA_HOME or defaults to ~/.local/share/bubbleshell.
func DataDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "bubbleshell"), nil
}

// SessionsPath returns the path to the session snapshot file.
func SessionsPath() (string, error) {
	dataDir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dataDir, "sessions.json"), nil
}

// ResolvePath returns override when set, otherwise the default sessions path.
func ResolvePath(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return SessionsPath()
}
