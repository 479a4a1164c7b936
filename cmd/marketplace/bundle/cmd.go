package bundle

import (
	"github.com/spf13/cobra"
)

// AddCommand adds the bundle subcommand to the given parent command.
func AddCommand(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "bundle",
		Short: "read operator bundle images",
		Long:  `pull operator bundle images and read their metadata, manifests and related images`,
	}

	parent.AddCommand(cmd)
	addBundleExtractCmd(cmd)
	addBundleInspectCmd(cmd)
	addBundleVerifyImagesCmd(cmd)
}
