package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"k8s.io/kubectl/pkg/util/templates"

	"github.com/mcarlett/marketplace-utilities/cmd/marketplace/internal/util"
	"github.com/mcarlett/marketplace-utilities/pkg/bundle"
	"github.com/mcarlett/marketplace-utilities/pkg/catalog"
	"github.com/mcarlett/marketplace-utilities/pkg/containertools"
	"github.com/mcarlett/marketplace-utilities/pkg/index"
)

var (
	buildLong = templates.LongDesc(`
		Build an index image from operator bundle images.

		Bundles are added one at a time in the given order, each on top of the index built so far, and the index is pushed after every addition. Registry credentials can be given with --registry-username and --registry-password, or the MARKETPLACE_REGISTRY_USERNAME and MARKETPLACE_REGISTRY_PASSWORD environment variables.

		With --publish the pushed index is made available to OLM as a CatalogSource of the given name.
	`)

	buildExample = templates.Examples(`
		# Build and push an index with two versions of an operator
		%[1]s --tag quay.io/example/index:latest --bundles quay.io/example/etcd-bundle:0.9.2,quay.io/example/etcd-bundle:0.9.4

		# Add a bundle to an existing index and publish it to the cluster
		%[1]s --tag quay.io/example/index:latest --from-existing --bundles quay.io/example/etcd-bundle:1.0.0 --publish etcd-catalog
	`)
)

func addIndexBuildCmd(parent *cobra.Command) {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an index image from operator bundles.",
		Long:  buildLong,
		Args:  cobra.NoArgs,
		RunE:  runIndexBuildCmdFunc,
	}

	util.AddContainerToolFlags(cmd)
	cmd.Flags().StringP("tag", "t", "", "image reference of the index")
	cmd.Flags().StringSliceP("bundles", "b", nil, "comma separated list of bundles to add, in order")
	cmd.Flags().Bool("from-existing", false, "pull the index first and add the bundles to its current contents")
	cmd.Flags().StringP("build-tool", "u", "", "tool opm builds the index with. One of: [docker, podman]. Defaults to the container tool")
	cmd.Flags().StringP("mode", "", "", "graph update mode that defines how channel graphs are updated. One of: [replaces, semver, semver-skippatch]")
	cmd.Flags().String("opm", "", "path of the opm binary, looked up in $OPM_BINARY and $PATH when empty")
	cmd.Flags().String("registry-username", "", "user pushing the index")
	cmd.Flags().String("registry-password", "", "password of the user pushing the index")
	cmd.Flags().String("publish", "", "name of the CatalogSource to publish the index as")
	cmd.Flags().String("catalog-namespace", catalog.MarketplaceNamespace, "namespace of the published CatalogSource")

	parent.AddCommand(cmd)
	cmd.Example = fmt.Sprintf(buildExample, cmd.CommandPath())
}

func runIndexBuildCmdFunc(cmd *cobra.Command, args []string) error {
	v, err := util.Config(cmd)
	if err != nil {
		return err
	}
	tag := v.GetString("tag")
	if tag == "" {
		return errors.New("--tag is required")
	}
	bundles := util.StringList(v, "bundles")
	if len(bundles) == 0 {
		return errors.New("at least one bundle is required")
	}

	logger := logrus.WithFields(logrus.Fields{"bundles": bundles})
	opts, err := indexOptions(cmd.Context(), v, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := opts.Auth.Cleanup(); err != nil {
			logger.Warnf("error removing registry credentials: %v", err)
		}
	}()

	idx, err := index.New(tag, opts)
	if err != nil {
		return err
	}
	if v.GetBool("from-existing") {
		if err := idx.Pull(); err != nil {
			return err
		}
	}

	logger.Info("building the index")
	if _, err := idx.AddBundles(cmd.Context(), bundles...); err != nil {
		return err
	}

	if name := v.GetString("publish"); name != "" {
		return idx.PublishToCluster(cmd.Context(), name)
	}
	return nil
}

func indexOptions(ctx context.Context, v *viper.Viper, logger *logrus.Entry) (index.Options, error) {
	tool, err := util.ContainerTool(v)
	if err != nil {
		return index.Options{}, err
	}
	buildTool := tool
	if bt := v.GetString("build-tool"); bt != "" {
		if buildTool, err = containertools.NewCommandContainerTool(bt); err != nil {
			return index.Options{}, err
		}
	}

	reader := containertools.NewImageReader(tool, logger, util.RunnerOptions(v)...)
	opm := v.GetString("opm")
	if opm == "" {
		if opm, err = locateOpm(ctx, reader, logger); err != nil {
			return index.Options{}, err
		}
	}

	opts := index.Options{
		Builder:   bundle.NewBuilder(reader, logger),
		Packager:  index.NewOpm(opm, logger),
		Runner:    containertools.NewCommandRunner(tool, logger, util.RunnerOptions(v)...),
		BuildTool: buildTool,
		Mode:      v.GetString("mode"),
		SkipTLS:   v.GetBool("skip-tls"),
		Logger:    logger,
	}
	if user := v.GetString("registry-username"); user != "" {
		// The registry is filled in from the index reference.
		opts.Auth = index.NewRegistryAuth("", user, v.GetString("registry-password"))
	}

	if v.GetString("publish") != "" {
		client, err := util.ClusterClient(logger)
		if err != nil {
			return index.Options{}, err
		}
		opts.Catalogs = catalog.NewPublisher(client, util.Poller(logger), logger, catalog.WithNamespace(v.GetString("catalog-namespace")))
	}
	return opts, nil
}

// locateOpm falls back to pulling opm out of the release image of the cluster.
func locateOpm(ctx context.Context, reader containertools.ImageReader, logger *logrus.Entry) (string, error) {
	opm, err := index.LocateOpm()
	if !errors.Is(err, index.ErrOpmNotFound) {
		return opm, err
	}
	client, cerr := util.ClusterClient(logger)
	if cerr != nil {
		return "", fmt.Errorf("%v, and no cluster to fetch it from: %w", err, cerr)
	}
	return index.NewOpmFetcher(client, reader, logger).Fetch(ctx)
}
