package index

import (
	"github.com/spf13/cobra"
)

// AddCommand adds the index subcommand to the given parent command.
func AddCommand(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "build operator index images and serve them to OLM",
		Long:  `build operator index images from bundle images, push them and publish them as catalog sources`,
	}

	parent.AddCommand(cmd)
	addIndexBuildCmd(cmd)
	addIndexUnpublishCmd(cmd)
}
