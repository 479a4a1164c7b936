package containertools

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ToolError is returned when an external binary exits unsuccessfully. The
// captured output is kept for diagnostics.
type ToolError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s %s failed: %v: %s", e.Tool, strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Output))
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// ExitCode returns the exit status of the tool, or -1 when the tool did not
// run to completion.
func (e *ToolError) ExitCode() int {
	var exitErr *exec.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
