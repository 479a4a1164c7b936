package util

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcarlett/marketplace-utilities/pkg/containertools"
)

func TestParseKeyValues(t *testing.T) {
	tests := []struct {
		description string
		pairs       []string
		expected    map[string]string
		expectedErr bool
	}{
		{
			description: "Empty",
			expected:    map[string]string{},
		},
		{
			description: "Pairs",
			pairs:       []string{"operator=quay.io/example/operator:v1", " proxy = quay.io/example/proxy@sha256:abc "},
			expected: map[string]string{
				"operator": "quay.io/example/operator:v1",
				"proxy":    "quay.io/example/proxy@sha256:abc",
			},
		},
		{
			description: "MissingSeparator",
			pairs:       []string{"operator"},
			expectedErr: true,
		},
		{
			description: "EmptyValue",
			pairs:       []string{"operator="},
			expectedErr: true,
		},
		{
			description: "Duplicate",
			pairs:       []string{"operator=a", "operator=b"},
			expectedErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			values, err := ParseKeyValues(tt.pairs)
			if tt.expectedErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, values)
		})
	}
}

func TestConfigReadsEnvironment(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	AddContainerToolFlags(cmd)
	cmd.Flags().String("registry-password", "", "")

	t.Setenv("MARKETPLACE_REGISTRY_PASSWORD", "s3cret")
	t.Setenv("MARKETPLACE_CONTAINER_TOOL", "docker")

	v, err := Config(cmd)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", v.GetString("registry-password"))

	tool, err := ContainerTool(v)
	require.NoError(t, err)
	assert.Equal(t, containertools.DockerTool, tool)
}

func TestConfigPrefersFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	AddContainerToolFlags(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--container-tool", "podman", "--skip-tls"}))

	t.Setenv("MARKETPLACE_CONTAINER_TOOL", "docker")

	v, err := Config(cmd)
	require.NoError(t, err)
	tool, err := ContainerTool(v)
	require.NoError(t, err)
	assert.Equal(t, containertools.PodmanTool, tool)
	assert.True(t, v.GetBool("skip-tls"))
}

func TestContainerToolRejectsUnknown(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	AddContainerToolFlags(cmd)
	t.Setenv("MARKETPLACE_CONTAINER_TOOL", "buildah")

	v, err := Config(cmd)
	require.NoError(t, err)
	_, err = ContainerTool(v)
	require.Error(t, err)
}

func TestStringList(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "test"}
		cmd.Flags().StringSlice("bundles", nil, "")
		return cmd
	}

	t.Run("Environment", func(t *testing.T) {
		t.Setenv("MARKETPLACE_BUNDLES", "quay.io/ns/bundle:1, quay.io/ns/bundle:2,,")
		v, err := Config(newCmd())
		require.NoError(t, err)
		assert.Equal(t, []string{"quay.io/ns/bundle:1", "quay.io/ns/bundle:2"}, StringList(v, "bundles"))
	})

	t.Run("Flags", func(t *testing.T) {
		cmd := newCmd()
		require.NoError(t, cmd.Flags().Parse([]string{"--bundles", "quay.io/ns/bundle:1,quay.io/ns/bundle:2", "--bundles", "quay.io/ns/bundle:3"}))
		v, err := Config(cmd)
		require.NoError(t, err)
		assert.Equal(t, []string{"quay.io/ns/bundle:1", "quay.io/ns/bundle:2", "quay.io/ns/bundle:3"}, StringList(v, "bundles"))
	})

	t.Run("Unset", func(t *testing.T) {
		v, err := Config(newCmd())
		require.NoError(t, err)
		assert.Empty(t, StringList(v, "bundles"))
	})
}
