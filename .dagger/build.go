package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/leo/internal/dagger"
)

// Build and return a directory holding the leo binary for linux on the
// engine's native architecture. CGO rules out a cross-compile matrix.
func (l *Leo) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	path := "bin/"

	return l.goContainer().
		WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/leo"}).
		Directory(path)
}

// BuildRelease compiles versioned release binaries with embedded version info
func (l *Leo) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now().UTC().Format(time.RFC3339)

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/leo/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/leo/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/leo/pkg/utils.Buildtime=%s'", buildtime),
	}

	return l.Build(ctx, strings.Join(ldflags, " "))
}
