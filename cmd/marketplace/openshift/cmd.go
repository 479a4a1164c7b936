package openshift

import (
	"github.com/spf13/cobra"
)

// AddCommand adds the mirror and operatorhub subcommands to the given parent command.
func AddCommand(parent *cobra.Command) {
	parent.AddCommand(newMirrorCmd(), newOperatorHubCmd())
}
