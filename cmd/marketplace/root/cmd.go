package root

import (
	"flag"

	"github.com/spf13/cobra"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/bundle"
	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/index"
	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/openshift"
	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/subscription"
	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/version"
)

func NewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marketplace",
		Short: "operator marketplace utilities",
		Long:  "CLI to package operator bundles into index images and install them on a cluster through OLM",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return util.SetLogLevel(cmd)
		},
		SilenceUsage: true,
	}

	bundle.AddCommand(cmd)
	index.AddCommand(cmd)
	subscription.AddCommand(cmd)
	openshift.AddCommand(cmd)
	version.AddCommand(cmd)

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	// --kubeconfig, registered by controller-runtime
	cmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	return cmd
}
