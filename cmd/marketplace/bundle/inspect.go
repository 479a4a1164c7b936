package bundle

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/kubectl/pkg/util/templates"
	"sigs.k8s.io/yaml"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/pkg/bundle"
	"github.com/mcarlett/marketplace-utilities/pkg/containertools"
)

var inspectLong = templates.LongDesc(`
	Print the metadata of an operator bundle image as YAML.
`)

// summary is the printed form of a bundle.
type summary struct {
	Image          string            `json:"image"`
	Package        string            `json:"package"`
	Channels       []string          `json:"channels"`
	DefaultChannel string            `json:"defaultChannel"`
	MediaType      string            `json:"mediaType,omitempty"`
	CSV            string            `json:"csv"`
	Version        string            `json:"version,omitempty"`
	CRDs           []string          `json:"crds,omitempty"`
	RelatedImages  map[string]string `json:"relatedImages,omitempty"`
}

func newSummary(b *bundle.Bundle) (*summary, error) {
	s := &summary{
		Image:          b.Image(),
		Package:        b.PackageName(),
		Channels:       b.Channels(),
		DefaultChannel: b.DefaultChannel(),
		MediaType:      b.MediaType(),
		CSV:            b.CSVName(),
		CRDs:           b.CRDs(),
	}
	if version, err := b.Version(); err == nil {
		s.Version = version.String()
	}
	images, err := b.RelatedImages()
	if err != nil {
		return nil, err
	}
	s.RelatedImages = images
	return s, nil
}

func addBundleInspectCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "inspect BUNDLE_IMAGE",
		Short: "Print the metadata of an operator bundle image.",
		Long:  inspectLong,
		Args:  cobra.ExactArgs(1),
		RunE:  runBundleInspectCmdFunc,
	}

	util.AddContainerToolFlags(cmd)
	parent.AddCommand(cmd)
}

func runBundleInspectCmdFunc(cmd *cobra.Command, args []string) error {
	v, err := util.Config(cmd)
	if err != nil {
		return err
	}
	tool, err := util.ContainerTool(v)
	if err != nil {
		return err
	}
	logger := logrus.WithField("bundle", args[0])

	builder := bundle.NewBuilder(containertools.NewImageReader(tool, logger, util.RunnerOptions(v)...), logger)
	b, err := builder.Build(args[0])
	if err != nil {
		return err
	}

	s, err := newSummary(b)
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
	return err
}
