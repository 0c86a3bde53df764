// Package version holds build metadata for the docqa binary, set with
// -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/docqa-go/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/docqa-go/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                    -X github.com/54b3r/docqa-go/internal/version.BuildDate=$(date -u +%FT%TZ)"
package version

import (
	"fmt"
	"runtime"
)

var (
	// Version is the release tag, "dev" for local builds.
	Version = "dev"
	// Commit is the short git SHA.
	Commit = "unknown"
	// BuildDate is the UTC build time in RFC3339.
	BuildDate = "unknown"
)

// String renders the one-line form printed by `docqa version`.
func String() string {
	return fmt.Sprintf("docqa %s (commit %s, built %s, %s %s/%s)",
		Version, Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
