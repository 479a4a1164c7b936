package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	dircopy "github.com/otiai10/copy"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"k8s.io/kubectl/pkg/util/templates"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/pkg/bundle"
	"github.com/mcarlett/marketplace-utilities/pkg/containertools"
)

const archiveName = "image"

var (
	extractLong = templates.LongDesc(`
		Extract the filesystem of an operator bundle image.

		The image is pulled, its layers are flattened and the result is checked to be a valid bundle before it is copied to the output directory.
	`)

	extractExample = templates.Examples(`
		# Extract a bundle into ./etcd
		%[1]s quay.io/example/etcd-bundle:0.9.4 --output ./etcd
	`)
)

func addBundleExtractCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "extract BUNDLE_IMAGE",
		Short: "Extract the contents of an operator bundle image.",
		Long:  extractLong,
		Args:  cobra.ExactArgs(1),
		RunE:  runBundleExtractCmdFunc,
	}

	util.AddContainerToolFlags(cmd)
	cmd.Flags().StringP("output", "o", "", "directory the bundle is copied to")
	cmd.Flags().Bool("keep-archive", false, "also copy the exported image archive, to the image directory of the output")

	parent.AddCommand(cmd)
	cmd.Example = fmt.Sprintf(extractExample, cmd.CommandPath())
}

func runBundleExtractCmdFunc(cmd *cobra.Command, args []string) error {
	v, err := util.Config(cmd)
	if err != nil {
		return err
	}
	output := v.GetString("output")
	if output == "" {
		return errors.New("--output is required")
	}
	tool, err := util.ContainerTool(v)
	if err != nil {
		return err
	}

	image := args[0]
	logger := logrus.WithFields(logrus.Fields{"bundle": image, "output": output})

	staging, err := os.MkdirTemp("", "bundle-extract-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(staging)

	var opts []containertools.GetImageDataOption
	if v.GetBool("keep-archive") {
		archiveDir := filepath.Join(staging, archiveName)
		if err := os.MkdirAll(archiveDir, 0755); err != nil {
			return err
		}
		opts = append(opts, containertools.WithWorkingDir(archiveDir))
	}

	reader := containertools.NewImageReader(tool, logger, util.RunnerOptions(v)...)
	if err := reader.GetImageData(image, staging, opts...); err != nil {
		return err
	}

	b, err := bundle.Load(afero.NewOsFs(), staging, image)
	if err != nil {
		return err
	}

	// Only the bundle directories are copied, the export also left layer archives behind.
	dirs := []string{b.Annotations().ManifestsDir(), b.Annotations().MetadataDir()}
	if v.GetBool("keep-archive") {
		dirs = append(dirs, archiveName)
	}
	for _, dir := range dirs {
		dir = strings.Trim(filepath.Clean(dir), "/")
		if err := dircopy.Copy(filepath.Join(staging, dir), filepath.Join(output, dir)); err != nil {
			return fmt.Errorf("error copying %s to %s: %w", dir, output, err)
		}
	}

	logger.WithFields(logrus.Fields{
		"package": b.PackageName(),
		"csv":     b.CSVName(),
	}).Info("extracted bundle")
	return nil
}
