package index

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/blang/semver/v4"
	configv1 "github.com/openshift/api/config/v1"
	dircopy "github.com/otiai10/copy"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/mcarlett/marketplace-utilities/pkg/cluster"
	"github.com/mcarlett/marketplace-utilities/pkg/containertools"
)

const (
	// OpmBinaryEnv points at the opm binary to use.
	OpmBinaryEnv = "OPM_BINARY"

	// OpmImageRepository ships opm builds matching each OpenShift minor release.
	OpmImageRepository = "registry.redhat.io/openshift4/ose-operator-registry"

	opmCacheDir       = "marketplace-utilities-opm"
	opmImagePath      = "usr/bin/registry/opm"
	apiServerOperator = "openshift-apiserver"
)

var ErrOpmNotFound = errors.New("opm binary not found")

// AddToIndexRequest asks the packaging tool to add bundles to an index image.
type AddToIndexRequest struct {
	Bundles []string
	Tag     string
	// FromIndex is the index the new image is built on top of. Empty builds
	// a fresh index.
	FromIndex string
	BuildTool containertools.ContainerTool
	// Mode is the channel graph update mode, one of replaces, semver or
	// semver-skippatch. Empty leaves the tool default.
	Mode    string
	SkipTLS bool
}

// Packager builds index images.
type Packager interface {
	AddToIndex(ctx context.Context, request AddToIndexRequest) error
}

// Opm runs `opm index add`.
type Opm struct {
	binary string
	logger *logrus.Entry

	execCommand func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

var _ Packager = &Opm{}

func NewOpm(binary string, logger *logrus.Entry) *Opm {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Opm{
		binary:      binary,
		logger:      logger,
		execCommand: exec.CommandContext,
	}
}

func (o *Opm) Binary() string {
	return o.binary
}

func addArgs(request AddToIndexRequest) []string {
	args := []string{
		"index", "add",
		"--bundles=" + strings.Join(request.Bundles, ","),
		"--tag=" + request.Tag,
	}
	if request.BuildTool != containertools.NoneTool {
		args = append(args, "--build-tool="+request.BuildTool.String())
	}
	if request.FromIndex != "" {
		args = append(args, "--from-index="+request.FromIndex)
	}
	if request.Mode != "" {
		args = append(args, "--mode="+request.Mode)
	}
	if request.SkipTLS {
		args = append(args, "--skip-tls")
	}
	return args
}

func (o *Opm) AddToIndex(ctx context.Context, request AddToIndexRequest) error {
	if len(request.Bundles) == 0 {
		return errors.New("no bundles to add")
	}
	args := addArgs(request)
	command := o.execCommand(ctx, o.binary, args...)

	o.logger.Infof("running %s", command.String())
	out, err := command.CombinedOutput()
	if err != nil {
		o.logger.Errorf("%s", out)
		return &containertools.ToolError{
			Tool:   o.binary,
			Args:   args,
			Output: string(out),
			Err:    err,
		}
	}
	o.logger.Debugf("%s", out)
	return nil
}

// LocateOpm finds the opm binary: $OPM_BINARY first, then $PATH, then the
// binary an OpmFetcher cached in the temp dir.
func LocateOpm() (string, error) {
	if path := os.Getenv(OpmBinaryEnv); path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("%s=%s: %w", OpmBinaryEnv, path, err)
		}
		return path, nil
	}
	if path, err := exec.LookPath("opm"); err == nil {
		return path, nil
	}
	if cached, ok := cachedOpm(DefaultOpmCacheDir()); ok {
		return cached, nil
	}
	return "", fmt.Errorf("%w: set %s or add opm to PATH", ErrOpmNotFound, OpmBinaryEnv)
}

func DefaultOpmCacheDir() string {
	return filepath.Join(os.TempDir(), opmCacheDir)
}

func cachedOpm(dir string) (string, bool) {
	path := filepath.Join(dir, "opm")
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return path, true
	}
	return "", false
}

// OpmFetcher extracts opm from the operator registry image released with the
// cluster's OpenShift version.
type OpmFetcher struct {
	client cluster.Client
	reader containertools.ImageReader
	logger *logrus.Entry

	// CacheDir keeps the extracted binary across runs.
	CacheDir string
}

func NewOpmFetcher(client cluster.Client, reader containertools.ImageReader, logger *logrus.Entry) *OpmFetcher {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &OpmFetcher{
		client:   client,
		reader:   reader,
		logger:   logger,
		CacheDir: DefaultOpmCacheDir(),
	}
}

// Fetch returns the cached binary, extracting it first when missing.
func (f *OpmFetcher) Fetch(ctx context.Context) (string, error) {
	if cached, ok := cachedOpm(f.CacheDir); ok {
		return cached, nil
	}

	image, err := OpmImage(ctx, f.client)
	if err != nil {
		return "", err
	}

	staging, err := os.MkdirTemp("", "opm_image_")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(staging)

	f.logger.Infof("extracting opm from %s", image)
	if err := f.reader.GetImageData(image, staging); err != nil {
		return "", fmt.Errorf("error extracting opm from %s: %w", image, err)
	}
	source := filepath.Join(staging, filepath.FromSlash(opmImagePath))
	if info, err := os.Stat(source); err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: no %s in %s", ErrOpmNotFound, opmImagePath, image)
	}

	if err := os.MkdirAll(f.CacheDir, 0755); err != nil {
		return "", err
	}
	// Copy next to the target and rename, a concurrent run never sees half a binary.
	target := filepath.Join(f.CacheDir, "opm")
	partial := target + ".partial"
	if err := dircopy.Copy(source, partial); err != nil {
		return "", err
	}
	if err := os.Chmod(partial, 0755); err != nil {
		return "", err
	}
	if err := os.Rename(partial, target); err != nil {
		return "", err
	}
	return target, nil
}

// OpmImage picks the operator registry image tag from the version the
// openshift-apiserver cluster operator reports, 4.16.7 giving v4.16.
func OpmImage(ctx context.Context, client cluster.Client) (string, error) {
	u, err := client.Get(ctx, cluster.ClusterOperators, "", apiServerOperator)
	if err != nil {
		return "", err
	}
	var co configv1.ClusterOperator
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(u.Object, &co); err != nil {
		return "", err
	}

	var version string
	for _, v := range co.Status.Versions {
		if v.Name == "operator" {
			version = v.Version
			break
		}
	}
	if version == "" && len(co.Status.Versions) > 0 {
		version = co.Status.Versions[0].Version
	}
	if version == "" {
		return "", fmt.Errorf("cluster operator %s reports no version", apiServerOperator)
	}

	v, err := semver.ParseTolerant(version)
	if err != nil {
		return "", fmt.Errorf("cluster operator %s version %q: %w", apiServerOperator, version, err)
	}
	return fmt.Sprintf("%s:v%d.%d", OpmImageRepository, v.Major, v.Minor), nil
}
