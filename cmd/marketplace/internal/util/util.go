package util

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"sigs.k8s.io/controller-runtime/pkg/client/config"

	"github.com/mcarlett/marketplace-utilities/pkg/cluster"
	"github.com/mcarlett/marketplace-utilities/pkg/containertools"
	"github.com/mcarlett/marketplace-utilities/pkg/poll"
)

// EnvPrefix namespaces the environment variables that back command flags,
// e.g. --registry-password is read from MARKETPLACE_REGISTRY_PASSWORD.
const EnvPrefix = "MARKETPLACE"

// Config binds every flag of cmd, inherited ones included, to its
// environment variable. Explicitly set flags win over the environment.
func Config(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	return v, nil
}

// SetLogLevel turns on debug logging when the debug flag or variable is set.
func SetLogLevel(cmd *cobra.Command) error {
	v, err := Config(cmd)
	if err != nil {
		return err
	}
	if v.GetBool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	return nil
}

// AddContainerToolFlags registers the flags read by ContainerTool and RunnerOptions.
func AddContainerToolFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("container-tool", "c", "podman", "tool to interact with container images (pull, save, push). One of: [docker, podman]")
	cmd.Flags().Bool("skip-tls", false, "skip TLS certificate verification for container image registries while pulling and pushing")
}

func ContainerTool(v *viper.Viper) (containertools.ContainerTool, error) {
	return containertools.NewCommandContainerTool(v.GetString("container-tool"))
}

func RunnerOptions(v *viper.Viper) []containertools.RunnerOption {
	return []containertools.RunnerOption{containertools.WithSkipTLS(v.GetBool("skip-tls"))}
}

// ClusterClient connects to the cluster of the current kubeconfig context, or
// the one the process runs in.
func ClusterClient(logger *logrus.Entry) (cluster.Client, error) {
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading kubeconfig: %w", err)
	}
	return cluster.NewForConfig(cfg, logger)
}

func Poller(logger *logrus.Entry) *poll.Poller {
	return poll.NewPoller(poll.WithLogger(logger))
}

// StringList reads a list flag. Values coming from the environment are one
// string, viper only splits those on whitespace, so commas are split here.
func StringList(v *viper.Viper, key string) []string {
	var list []string
	for _, value := range v.GetStringSlice(key) {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				list = append(list, item)
			}
		}
	}
	return list
}

// ParseKeyValues parses key=value pairs. A key may only be given once.
func ParseKeyValues(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid value %q, expected key=value", pair)
		}
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		values[key] = value
	}
	return values, nil
}
