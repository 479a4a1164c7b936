package subscription

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/pkg/subscription"
)

// AddCommand adds the subscription subcommand to the given parent command.
func AddCommand(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "manage OLM subscriptions",
		Long:    `create and update OLM subscriptions and wait for the install plans they produce`,
	}
	cmd.PersistentFlags().StringP("namespace", "n", "", "namespace of the subscription")

	parent.AddCommand(cmd)
	addSubscriptionCreateCmd(cmd)
	addSubscriptionUpdateCmd(cmd)
	addSubscriptionWaitCmd(cmd)
}

func newManager(logger *logrus.Entry) (*subscription.Manager, error) {
	client, err := util.ClusterClient(logger)
	if err != nil {
		return nil, err
	}
	return subscription.NewManager(client, util.Poller(logger), logger), nil
}
