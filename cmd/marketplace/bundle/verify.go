package bundle

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/kubectl/pkg/util/templates"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/pkg/bundle"
	"github.com/mcarlett/marketplace-utilities/pkg/containertools"
)

var (
	verifyImagesLong = templates.LongDesc(`
		Check the related images of an operator bundle.

		Every expected image must resolve to the same image id as the related image of the same name in the bundle's ClusterServiceVersion.
	`)

	verifyImagesExample = templates.Examples(`
		# Check the operator image of a bundle built from a staging registry
		%[1]s quay.io/example/etcd-bundle:0.9.4 --expect etcd-operator=quay.io/example/etcd-operator:0.9.4 --registry-override registry.stage.example.com
	`)
)

func addBundleVerifyImagesCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "verify-images BUNDLE_IMAGE",
		Short: "Check the related images of an operator bundle.",
		Long:  verifyImagesLong,
		Args:  cobra.ExactArgs(1),
		RunE:  runBundleVerifyImagesCmdFunc,
	}

	util.AddContainerToolFlags(cmd)
	cmd.Flags().StringSliceP("expect", "e", nil, "expected images as name=image, the name is the related image name in the CSV")
	cmd.Flags().String("registry-override", "", "registry host that replaces the one of every CSV image before comparing")

	parent.AddCommand(cmd)
	cmd.Example = fmt.Sprintf(verifyImagesExample, cmd.CommandPath())
}

func runBundleVerifyImagesCmdFunc(cmd *cobra.Command, args []string) error {
	v, err := util.Config(cmd)
	if err != nil {
		return err
	}
	expected, err := util.ParseKeyValues(util.StringList(v, "expect"))
	if err != nil {
		return err
	}
	if len(expected) == 0 {
		return errors.New("at least one --expect image is required")
	}
	tool, err := util.ContainerTool(v)
	if err != nil {
		return err
	}
	logger := logrus.WithField("bundle", args[0])

	runner := containertools.NewCommandRunner(tool, logger, util.RunnerOptions(v)...)
	builder := bundle.NewBuilder(containertools.NewImageReader(tool, logger, util.RunnerOptions(v)...), logger)
	b, err := builder.Build(args[0])
	if err != nil {
		return err
	}

	if err := bundle.VerifyRelatedImages(runner, b, expected, v.GetString("registry-override")); err != nil {
		return err
	}
	logger.WithField("images", len(expected)).Info("related images match")
	return nil
}
