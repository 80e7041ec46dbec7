// Package version holds build-time identity for the pageflow CLI, set
// via -ldflags at build time.
package version

import "runtime"

// These are overridden at build time with:
//
//	-ldflags "-X github.com/jackzampolin/pageflow/version.GitRelease=... \
//	           -X github.com/jackzampolin/pageflow/version.GitCommit=... \
//	           -X github.com/jackzampolin/pageflow/version.GitCommitDate=..."
var (
	GitRelease    = "dev"
	GitCommit     = "unknown"
	GitCommitDate = "unknown"
)

// GoInfo is the Go toolchain version the binary was built with.
var GoInfo = runtime.Version()
