package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	defer func(v, c string) { GitVersion, GitCommit = v, c }(GitVersion, GitCommit)
	GitVersion, GitCommit = "v1.2.0", "3f2a9c1"

	assert.Equal(t, "marketplace v1.2.0, git commit: 3f2a9c1", String())
	assert.Contains(t, GoVersion(), "go")
}
