//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 . CommandRunner
package containertools

import (
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// CommandRunner defines methods to shell out to common container tools
type CommandRunner interface {
	GetToolName() string
	Pull(image string) error
	Save(image, tarFile string) error
	Push(image, authFile string) error
	Inspect(image string) ([]byte, error)
}

// ContainerCommandRunner is configured to select a container cli tool and
// execute commands with that tooling.
type ContainerCommandRunner struct {
	logger        *logrus.Entry
	containerTool ContainerTool
	config        *RunnerConfig

	execCommand func(name string, arg ...string) *exec.Cmd
}

type RunnerConfig struct {
	SkipTLS bool
}

type RunnerOption func(config *RunnerConfig)

func WithSkipTLS(skip bool) RunnerOption {
	return func(config *RunnerConfig) {
		config.SkipTLS = skip
	}
}

func (r *RunnerConfig) apply(options []RunnerOption) {
	for _, option := range options {
		option(r)
	}
}

func (r *ContainerCommandRunner) argsForCmd(cmd string, args ...string) []string {
	cmdArgs := []string{cmd}
	switch r.containerTool {
	case PodmanTool:
		switch cmd {
		case "pull", "push", "login", "search":
			// --tls-verify is a valid flag for these podman subcommands
			if r.config.SkipTLS {
				cmdArgs = append(cmdArgs, "--tls-verify=false")
			}
		}
	default:
	}
	cmdArgs = append(cmdArgs, args...)
	return cmdArgs
}

// pushArgs places the registry credentials where each tool expects them:
// docker reads a config directory given before the subcommand, podman takes an
// auth file flag on push itself.
func (r *ContainerCommandRunner) pushArgs(image, authFile string) []string {
	if authFile == "" {
		return r.argsForCmd("push", image)
	}
	switch r.containerTool {
	case PodmanTool:
		return r.argsForCmd("push", "--authfile", authFile, image)
	default:
		return append([]string{"--config", filepath.Dir(authFile)}, r.argsForCmd("push", image)...)
	}
}

// NewCommandRunner takes the containerTool as an input string and returns a
// CommandRunner to run commands with that cli tool
func NewCommandRunner(containerTool ContainerTool, logger *logrus.Entry, opts ...RunnerOption) *ContainerCommandRunner {
	var config RunnerConfig
	config.apply(opts)
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	r := &ContainerCommandRunner{
		logger:        logger,
		containerTool: containerTool,
		config:        &config,
		execCommand:   exec.Command,
	}
	return r
}

// GetToolName returns the container tool this command runner is using
func (r *ContainerCommandRunner) GetToolName() string {
	return r.containerTool.String()
}

func (r *ContainerCommandRunner) combined(args []string) error {
	command := r.execCommand(r.containerTool.String(), args...)

	r.logger.Infof("running %s", command.String())

	out, err := command.CombinedOutput()
	if err != nil {
		r.logger.Errorf("%s", out)
		return &ToolError{
			Tool:   r.containerTool.String(),
			Args:   args,
			Output: string(out),
			Err:    err,
		}
	}

	return nil
}

// Pull takes a container image path hosted on a container registry and runs the
// pull command to download it onto the local environment
func (r *ContainerCommandRunner) Pull(image string) error {
	return r.combined(r.argsForCmd("pull", image))
}

// Save exports a local image, with all of its layers, to a single tar archive.
func (r *ContainerCommandRunner) Save(image, tarFile string) error {
	return r.combined(r.argsForCmd("save", image, "-o", tarFile))
}

// Push uploads a local image to its registry. When authFile is set it must
// point at a docker config.json holding the registry credentials.
func (r *ContainerCommandRunner) Push(image, authFile string) error {
	return r.combined(r.pushArgs(image, authFile))
}

// Inspect runs the 'inspect' command to get image metadata of a local container
// image and returns a byte array of the command's output
func (r *ContainerCommandRunner) Inspect(image string) ([]byte, error) {
	args := r.argsForCmd("inspect", image)

	command := r.execCommand(r.containerTool.String(), args...)

	r.logger.Infof("running %s inspect", r.containerTool)
	r.logger.Debugf("%s", command.Args)

	out, err := command.Output()
	if err != nil {
		toolErr := &ToolError{
			Tool:   r.containerTool.String(),
			Args:   args,
			Output: string(out),
			Err:    err,
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			toolErr.Output = string(exitErr.Stderr)
		}
		r.logger.Errorf("%s", toolErr.Output)
		return nil, toolErr
	}

	return out, nil
}
