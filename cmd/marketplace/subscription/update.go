package subscription

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/kubectl/pkg/util/templates"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/pkg/subscription"
)

var (
	updateLong = templates.LongDesc(`
		Move a subscription to another channel.

		With --from and --to the command also waits for the completed install plan that replaced the first ClusterServiceVersion with the second.
	`)

	updateExample = templates.Examples(`
		# Upgrade etcd from the alpha to the beta channel
		%[1]s etcd --namespace etcd-test --channel beta --from etcdoperator.v0.9.2 --to etcdoperator.v0.9.4
	`)
)

func addSubscriptionUpdateCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "update SUBSCRIPTION",
		Short: "Move a subscription to another channel.",
		Long:  updateLong,
		Args:  cobra.ExactArgs(1),
		RunE:  runSubscriptionUpdateCmdFunc,
	}

	cmd.Flags().String("channel", "", "channel to move to")
	addUpgradeFlags(cmd)

	parent.AddCommand(cmd)
	cmd.Example = fmt.Sprintf(updateExample, cmd.CommandPath())
}

func addUpgradeFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "ClusterServiceVersion being replaced")
	cmd.Flags().String("to", "", "ClusterServiceVersion replacing it")
}

func runSubscriptionUpdateCmdFunc(cmd *cobra.Command, args []string) error {
	v, err := util.Config(cmd)
	if err != nil {
		return err
	}
	channel := v.GetString("channel")
	if channel == "" {
		return errors.New("--channel is required")
	}
	from, to := v.GetString("from"), v.GetString("to")
	if (from == "") != (to == "") {
		return errors.New("--from and --to must be set together")
	}

	h := &subscription.Handle{Name: args[0], Namespace: v.GetString("namespace")}
	logger := logrus.WithField("subscription", h.String())
	manager, err := newManager(logger)
	if err != nil {
		return err
	}

	if err := manager.Update(cmd.Context(), h, channel); err != nil {
		return err
	}
	if from == "" {
		return nil
	}
	return manager.WaitForUpdate(cmd.Context(), h, from, to)
}
