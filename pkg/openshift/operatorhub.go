package openshift

import (
	"context"
	"encoding/json"
	"fmt"

	configv1 "github.com/openshift/api/config/v1"
	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/mcarlett/marketplace-utilities/pkg/cluster"
)

// OperatorHubName is the singleton OperatorHub configuration object.
const OperatorHubName = "cluster"

// OperatorHub toggles the catalog sources OpenShift ships by default, so that
// only published test catalogs can satisfy a subscription.
type OperatorHub struct {
	client cluster.Client
	logger *logrus.Entry
}

func NewOperatorHub(client cluster.Client, logger *logrus.Entry) *OperatorHub {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &OperatorHub{
		client: client,
		logger: logger,
	}
}

// DefaultSourcesDisabled reports whether the default catalog sources are turned off.
func (o *OperatorHub) DefaultSourcesDisabled(ctx context.Context) (bool, error) {
	obj, err := o.client.Get(ctx, cluster.OperatorHubs, "", OperatorHubName)
	if err != nil {
		return false, fmt.Errorf("error reading operatorhub %s: %w", OperatorHubName, err)
	}
	var hub configv1.OperatorHub
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, &hub); err != nil {
		return false, fmt.Errorf("error decoding operatorhub %s: %w", OperatorHubName, err)
	}
	return hub.Spec.DisableAllDefaultSources, nil
}

// SetDefaultSourcesDisabled merge patches the OperatorHub. The field is
// written explicitly in both directions since the typed spec omits false.
func (o *OperatorHub) SetDefaultSourcesDisabled(ctx context.Context, disabled bool) error {
	patch, err := json.Marshal(map[string]interface{}{
		"spec": map[string]interface{}{
			"disableAllDefaultSources": disabled,
		},
	})
	if err != nil {
		return err
	}
	if _, err := o.client.MergePatch(ctx, cluster.OperatorHubs, "", OperatorHubName, patch); err != nil {
		return fmt.Errorf("error patching operatorhub %s: %w", OperatorHubName, err)
	}
	o.logger.WithField("disabled", disabled).Info("updated default catalog sources")
	return nil
}
