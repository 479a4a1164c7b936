package version

import (
	"fmt"
	"runtime"
)

// Set at build time with -ldflags "-X github.com/mcarlett/marketplace-utilities/pkg/version.GitVersion=v1.0.0"
var (
	// GitVersion is the release the binary was built from
	GitVersion = "unknown"
	// GitCommit indicates which git commit the binary was built from
	GitCommit = "unknown"
)

// GoVersion is the toolchain and platform the binary was built for.
func GoVersion() string {
	return fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// String returns a pretty string concatenation of GitVersion and GitCommit
func String() string {
	return fmt.Sprintf("marketplace %s, git commit: %s", GitVersion, GitCommit)
}
