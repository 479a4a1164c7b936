package openshift

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/pkg/openshift"
)

func newOperatorHubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operatorhub",
		Short: "toggle the default catalog sources of OpenShift",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "disable-defaults",
			Short: "Turn off the catalog sources OpenShift ships with.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return setDefaultSourcesDisabled(cmd, true)
			},
		},
		&cobra.Command{
			Use:   "enable-defaults",
			Short: "Turn the catalog sources OpenShift ships with back on.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return setDefaultSourcesDisabled(cmd, false)
			},
		},
	)
	return cmd
}

func setDefaultSourcesDisabled(cmd *cobra.Command, disabled bool) error {
	logger := logrus.WithField("operatorhub", openshift.OperatorHubName)
	client, err := util.ClusterClient(logger)
	if err != nil {
		return err
	}
	hub := openshift.NewOperatorHub(client, logger)

	current, err := hub.DefaultSourcesDisabled(cmd.Context())
	if err != nil {
		return err
	}
	if current == disabled {
		logger.WithField("disabled", disabled).Info("default catalog sources already set")
		return nil
	}
	return hub.SetDefaultSourcesDisabled(cmd.Context(), disabled)
}
