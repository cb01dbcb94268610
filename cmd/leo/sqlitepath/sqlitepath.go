// Package sqlitepath locates the SQLite database a leo command should open
// when none is configured.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/leo/pkg/dotdir"
)

// DefaultFile is the database file name written by "leo init".
const DefaultFile = "leo.sqlite"

// ResolveSQLitePath returns override when set, otherwise the first existing
// candidate database. An empty result means no database was found and the
// caller falls back to in-memory storage.
func ResolveSQLitePath(override string) string {
	if override != "" {
		return override
	}

	for _, candidate := range sqliteCandidates() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return ""
}

func sqliteCandidates() []string {
	candidates := []string{
		"leo.db",
		DefaultFile,
		filepath.Join(dotdir.DirName, "leo.db"),
		filepath.Join(dotdir.DirName, DefaultFile),
	}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates,
			filepath.Join(home, dotdir.DirName, "leo.db"),
			filepath.Join(home, dotdir.DirName, DefaultFile),
		)
	}

	if xdgHome := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdgHome != "" {
		candidates = append(candidates,
			filepath.Join(xdgHome, "leo", "leo.db"),
			filepath.Join(xdgHome, "leo", DefaultFile),
		)
	}

	return candidates
}
