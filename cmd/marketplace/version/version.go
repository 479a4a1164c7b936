package version

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mcarlett/marketplace-utilities/pkg/version"
)

// AddCommand adds the version subcommand to the given parent command.
func AddCommand(parent *cobra.Command) {
	parent.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version of marketplace",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			logrus.WithFields(logrus.Fields{
				"version":   version.GitVersion,
				"commit":    version.GitCommit,
				"goVersion": version.GoVersion(),
			}).Info(version.String())
		},
	})
}
