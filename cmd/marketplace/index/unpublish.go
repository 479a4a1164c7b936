package index

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/pkg/catalog"
)

func addIndexUnpublishCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "unpublish CATALOG_NAME",
		Short: "Delete the CatalogSource an index was published as.",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndexUnpublishCmdFunc,
	}

	cmd.Flags().String("catalog-namespace", catalog.MarketplaceNamespace, "namespace of the CatalogSource")
	parent.AddCommand(cmd)
}

func runIndexUnpublishCmdFunc(cmd *cobra.Command, args []string) error {
	v, err := util.Config(cmd)
	if err != nil {
		return err
	}
	logger := logrus.WithField("catalog", args[0])
	client, err := util.ClusterClient(logger)
	if err != nil {
		return err
	}

	publisher := catalog.NewPublisher(client, util.Poller(logger), logger, catalog.WithNamespace(v.GetString("catalog-namespace")))
	publisher.Remove(cmd.Context(), args[0])
	return nil
}
