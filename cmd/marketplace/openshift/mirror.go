package openshift

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/kubectl/pkg/util/templates"
	"sigs.k8s.io/yaml"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/pkg/openshift"
)

var (
	mirrorApplyLong = templates.LongDesc(`
		Pull images of source repositories from mirrors.

		Creates or replaces an ImageContentSourcePolicy and waits until the machine config pools have rolled it out to every node, which can take up to thirty minutes.

		Mirrors are given with --mirror SOURCE=MIRROR[,MIRROR...] or in a YAML file mapping every source repository to its list of mirrors.
	`)

	mirrorApplyExample = templates.Examples(`
		# Pull the operator images of registry.redhat.io from the brew registry
		%[1]s brew-registry --mirror registry.redhat.io/fuse7=brew.registry.redhat.io/fuse7

		# Read the mirrors from a file
		%[1]s brew-registry --file mirrors.yaml
	`)
)

func newMirrorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mirror",
		Short: "manage image mirror policies",
	}

	apply := &cobra.Command{
		Use:   "apply NAME",
		Short: "Apply an image mirror policy and wait for the rollout.",
		Long:  mirrorApplyLong,
		Args:  cobra.ExactArgs(1),
		RunE:  runMirrorApplyCmdFunc,
	}
	apply.Flags().StringArray("mirror", nil, "SOURCE=MIRROR[,MIRROR...], may be repeated")
	apply.Flags().StringP("file", "f", "", "YAML file mapping source repositories to mirrors")
	apply.Flags().StringSlice("pools", openshift.DefaultPools, "machine config pools to wait for")

	cmd.AddCommand(apply)
	apply.Example = fmt.Sprintf(mirrorApplyExample, apply.CommandPath())
	return cmd
}

func runMirrorApplyCmdFunc(cmd *cobra.Command, args []string) error {
	v, err := util.Config(cmd)
	if err != nil {
		return err
	}
	// Read directly, viper would split the mirror lists on their commas.
	flags, err := cmd.Flags().GetStringArray("mirror")
	if err != nil {
		return err
	}
	mirrors, err := readMirrors(v.GetString("file"), flags)
	if err != nil {
		return err
	}

	logger := logrus.WithField("policy", args[0])
	client, err := util.ClusterClient(logger)
	if err != nil {
		return err
	}
	policy := openshift.NewMirrorPolicy(client, util.Poller(logger), logger)
	policy.Pools = util.StringList(v, "pools")

	return policy.Apply(cmd.Context(), args[0], mirrors)
}

// readMirrors merges the mirrors of file, if any, with the flag values.
func readMirrors(file string, flags []string) (map[string][]string, error) {
	mirrors := map[string][]string{}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		if err := yaml.UnmarshalStrict(data, &mirrors); err != nil {
			return nil, fmt.Errorf("error parsing %s: %w", file, err)
		}
	}

	values, err := util.ParseKeyValues(flags)
	if err != nil {
		return nil, err
	}
	for source, targets := range values {
		for _, target := range strings.Split(targets, ",") {
			if target = strings.TrimSpace(target); target != "" {
				mirrors[source] = append(mirrors[source], target)
			}
		}
	}

	if len(mirrors) == 0 {
		return nil, errors.New("no mirrors given, use --mirror or --file")
	}
	return mirrors, nil
}
