// Package settings resolves where stkit keeps per-user state.
//
// All state lives in the XDG data directory:
//
//	$XDG_DATA_HOME/stkit/  (default: ~/.local/share/stkit/)
//
// Files stored:
//   - cache.db — the translation cache (sqlite), shared by every run on
//     this machine so multi-session jobs reuse prior work.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
)

const dataDirName = "stkit"

// CacheFileName is the translation cache file name inside the data dir.
const CacheFileName = "cache.db"

// dataDir returns the XDG data directory for stkit.
// Respects $XDG_DATA_HOME, falling back to ~/.local/share.
func dataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

// CacheFilePath returns the default cache location, creating the data
// directory if needed.
func CacheFilePath() (string, error) {
	dir, err := dataDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return filepath.Join(dir, CacheFileName), nil
}
