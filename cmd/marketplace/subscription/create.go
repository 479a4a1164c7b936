package subscription

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/kubectl/pkg/util/templates"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/pkg/catalog"
	"github.com/mcarlett/marketplace-utilities/pkg/subscription"
)

var (
	createLong = templates.LongDesc(`
		Subscribe a namespace to an operator package.

		The namespace is created when missing and given an OperatorGroup targeting itself. With --wait-for the command returns once an install plan installing that ClusterServiceVersion has completed.
	`)

	createExample = templates.Examples(`
		# Install etcd 0.9.2 from a published catalog and wait for it
		%[1]s etcd --namespace etcd-test --channel alpha --source etcd-catalog --starting-csv etcdoperator.v0.9.2 --wait-for etcdoperator.v0.9.2
	`)
)

func addSubscriptionCreateCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "create PACKAGE",
		Short: "Subscribe a namespace to an operator package.",
		Long:  createLong,
		Args:  cobra.ExactArgs(1),
		RunE:  runSubscriptionCreateCmdFunc,
	}

	cmd.Flags().String("name", "", "name of the subscription, defaults to the package name")
	cmd.Flags().String("channel", "", "channel to subscribe to")
	cmd.Flags().String("source", "", "CatalogSource serving the package")
	cmd.Flags().String("source-namespace", catalog.MarketplaceNamespace, "namespace of the CatalogSource")
	cmd.Flags().String("starting-csv", "", "ClusterServiceVersion to install first, the channel head when empty")
	cmd.Flags().String("wait-for", "", "ClusterServiceVersion whose installation to wait for")

	parent.AddCommand(cmd)
	cmd.Example = fmt.Sprintf(createExample, cmd.CommandPath())
}

func runSubscriptionCreateCmdFunc(cmd *cobra.Command, args []string) error {
	v, err := util.Config(cmd)
	if err != nil {
		return err
	}
	logger := logrus.WithField("package", args[0])
	manager, err := newManager(logger)
	if err != nil {
		return err
	}

	h, err := manager.Subscribe(cmd.Context(), subscription.Request{
		Name:                   v.GetString("name"),
		Namespace:              v.GetString("namespace"),
		Package:                args[0],
		Channel:                v.GetString("channel"),
		StartingCSV:            v.GetString("starting-csv"),
		CatalogSource:          v.GetString("source"),
		CatalogSourceNamespace: v.GetString("source-namespace"),
	})
	if err != nil {
		return err
	}

	if csv := v.GetString("wait-for"); csv != "" {
		return manager.WaitForInstall(cmd.Context(), h, csv)
	}
	return nil
}
