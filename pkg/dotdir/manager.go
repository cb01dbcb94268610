// Package dotdir resolves the .leo/ directory that holds leo's config file
// and, by default, its SQLite database.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the leo directory.
	DirName = ".leo"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to a .leo/ directory.
// Order of precedence is as follows:
//  1. Provided override, created if missing
//  2. Local ./.leo/ dir
//  3. Home ~/.leo/ dir
//
// If none apply, Target returns an empty string and no error.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating leo directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if local := filepath.Join(cwd, DirName); isDir(local) {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// No home directory is not an error, there is just nothing to find.
		return "", nil
	}
	if global := filepath.Join(home, DirName); isDir(global) {
		return global, nil
	}

	return "", nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
