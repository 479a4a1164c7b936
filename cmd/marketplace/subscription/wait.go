package subscription

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/pkg/subscription"
)

func addSubscriptionWaitCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "wait SUBSCRIPTION",
		Short: "Wait for an install plan of a subscription to complete.",
		Long: `Wait for a completed install plan in the subscription namespace. With only --to
any plan installing that ClusterServiceVersion counts, with --from as well only
the plan upgrading from --from to --to does.`,
		Args: cobra.ExactArgs(1),
		RunE: runSubscriptionWaitCmdFunc,
	}

	addUpgradeFlags(cmd)
	parent.AddCommand(cmd)
}

func runSubscriptionWaitCmdFunc(cmd *cobra.Command, args []string) error {
	v, err := util.Config(cmd)
	if err != nil {
		return err
	}
	from, to := v.GetString("from"), v.GetString("to")
	if to == "" {
		return errors.New("--to is required")
	}

	h := &subscription.Handle{Name: args[0], Namespace: v.GetString("namespace")}
	logger := logrus.WithField("subscription", h.String())
	manager, err := newManager(logger)
	if err != nil {
		return err
	}

	if from == "" {
		return manager.WaitForInstall(cmd.Context(), h, to)
	}
	return manager.WaitForUpdate(cmd.Context(), h, from, to)
}
