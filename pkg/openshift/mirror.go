package openshift

import (
	"context"
	"fmt"
	"sort"
	"time"

	operatorv1alpha1 "github.com/openshift/api/operator/v1alpha1"
	"github.com/sirupsen/logrus"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/mcarlett/marketplace-utilities/pkg/cluster"
	"github.com/mcarlett/marketplace-utilities/pkg/poll"
)

const (
	icspKind = "ImageContentSourcePolicy"

	// Applying a mirror policy rolls a new machine config out to every node.
	PoolPollInterval = 30 * time.Second
	PoolPollTimeout  = 30 * time.Minute
)

var (
	icspTypeMeta = metav1.TypeMeta{
		APIVersion: operatorv1alpha1.GroupVersion.String(),
		Kind:       icspKind,
	}

	DefaultPools = []string{"master", "worker"}
)

// MirrorPolicy redirects image pulls from source repositories to mirrors on
// OpenShift clusters.
type MirrorPolicy struct {
	client cluster.Client
	poller *poll.Poller
	logger *logrus.Entry

	// Pools are the machine config pools that must finish rolling out the
	// policy before Apply returns.
	Pools []string
}

func NewMirrorPolicy(client cluster.Client, poller *poll.Poller, logger *logrus.Entry) *MirrorPolicy {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if poller == nil {
		poller = poll.NewPoller(poll.WithLogger(logger))
	}
	return &MirrorPolicy{
		client: client,
		poller: poller,
		logger: logger,
		Pools:  append([]string(nil), DefaultPools...),
	}
}

// NewImageContentSourcePolicy maps every source repository to its mirrors.
// Sources are sorted so the same input always renders the same object.
func NewImageContentSourcePolicy(name string, mirrors map[string][]string) *operatorv1alpha1.ImageContentSourcePolicy {
	sources := make([]string, 0, len(mirrors))
	for source := range mirrors {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	icsp := &operatorv1alpha1.ImageContentSourcePolicy{
		TypeMeta: icspTypeMeta,
		ObjectMeta: metav1.ObjectMeta{
			Name: name,
		},
	}
	for _, source := range sources {
		icsp.Spec.RepositoryDigestMirrors = append(icsp.Spec.RepositoryDigestMirrors, operatorv1alpha1.RepositoryDigestMirrors{
			Source:  source,
			Mirrors: append([]string(nil), mirrors[source]...),
		})
	}
	return icsp
}

// Apply creates or replaces the ImageContentSourcePolicy name and waits for
// the machine config pools to settle.
func (m *MirrorPolicy) Apply(ctx context.Context, name string, mirrors map[string][]string) error {
	if len(mirrors) == 0 {
		return fmt.Errorf("image content source policy %s has no mirrors", name)
	}
	for source, targets := range mirrors {
		if len(targets) == 0 {
			return fmt.Errorf("image content source policy %s: source %s has no mirrors", name, source)
		}
	}

	content, err := runtime.DefaultUnstructuredConverter.ToUnstructured(NewImageContentSourcePolicy(name, mirrors))
	if err != nil {
		return fmt.Errorf("error converting image content source policy %s: %w", name, err)
	}

	logger := m.logger.WithField("policy", name)
	logger.Info("applying image content source policy")
	if _, err := m.client.CreateOrReplace(ctx, cluster.ImageContentSourcePolicies, &unstructured.Unstructured{Object: content}); err != nil {
		return fmt.Errorf("error applying image content source policy %s: %w", name, err)
	}

	return m.WaitForPools(ctx)
}

// WaitForPools blocks until every configured machine config pool reports an
// up to date configuration on all of its machines.
func (m *MirrorPolicy) WaitForPools(ctx context.Context) error {
	m.logger.WithField("pools", m.Pools).Info("waiting for machine config pools")
	err := m.poller.Until(ctx, PoolPollInterval, PoolPollTimeout, func(ctx context.Context) (bool, error) {
		for _, name := range m.Pools {
			pool, err := m.client.Get(ctx, cluster.MachineConfigPools, "", name)
			if err != nil {
				return false, err
			}
			if ready, reason := poolReady(pool); !ready {
				m.logger.WithField("pool", name).Debugf("pool not ready: %s", reason)
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("machine config pools %v did not finish updating: %w", m.Pools, err)
	}
	return nil
}

func poolReady(pool *unstructured.Unstructured) (bool, string) {
	observed, _, _ := unstructured.NestedInt64(pool.Object, "status", "observedGeneration")
	if observed < pool.GetGeneration() {
		return false, fmt.Sprintf("observed generation %d behind %d", observed, pool.GetGeneration())
	}

	machines, _, _ := unstructured.NestedInt64(pool.Object, "status", "machineCount")
	updated, _, _ := unstructured.NestedInt64(pool.Object, "status", "updatedMachineCount")
	if updated != machines {
		return false, fmt.Sprintf("%d of %d machines updated", updated, machines)
	}

	if status := conditionStatus(pool, "Updated"); status != "True" {
		return false, fmt.Sprintf("Updated is %q", status)
	}
	if status := conditionStatus(pool, "Updating"); status != "False" {
		return false, fmt.Sprintf("Updating is %q", status)
	}
	return true, ""
}

func conditionStatus(obj *unstructured.Unstructured, conditionType string) string {
	conditions, _, _ := unstructured.NestedSlice(obj.Object, "status", "conditions")
	for _, c := range conditions {
		condition, ok := c.(map[string]interface{})
		if !ok {
			continue
		}
		if t, _, _ := unstructured.NestedString(condition, "type"); t != conditionType {
			continue
		}
		status, _, _ := unstructured.NestedString(condition, "status")
		return status
	}
	return ""
}
