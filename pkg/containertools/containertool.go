package containertools

import (
	"fmt"
)

// ContainerTool is the container cli used to pull, save and push images.
type ContainerTool int

const (
	NoneTool ContainerTool = iota
	PodmanTool
	DockerTool
)

func (t ContainerTool) String() (s string) {
	switch t {
	case NoneTool:
		s = "none"
	case PodmanTool:
		s = "podman"
	case DockerTool:
		s = "docker"
	}
	return
}

// NewContainerTool parses s and falls back to defaultTool for unknown values.
func NewContainerTool(s string, defaultTool ContainerTool) (t ContainerTool) {
	switch s {
	case "podman":
		t = PodmanTool
	case "docker":
		t = DockerTool
	case "none":
		t = NoneTool
	default:
		t = defaultTool
	}
	return
}

// NewCommandContainerTool returns a tool that can be used in `exec` statements.
func NewCommandContainerTool(s string) (t ContainerTool, err error) {
	switch s {
	case "podman":
		t = PodmanTool
	case "docker":
		t = DockerTool
	default:
		err = fmt.Errorf("unknown command tool %q", s)
	}
	return
}
