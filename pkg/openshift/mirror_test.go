package openshift_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	operatorv1alpha1 "github.com/openshift/api/operator/v1alpha1"
	"github.com/sirupsen/logrus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/dynamic/fake"
	k8stesting "k8s.io/client-go/testing"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/mcarlett/marketplace-utilities/pkg/cluster"
	"github.com/mcarlett/marketplace-utilities/pkg/openshift"
	"github.com/mcarlett/marketplace-utilities/pkg/poll"
)

func machineConfigPool(name string, updated bool) *unstructured.Unstructured {
	updatedStatus, updatingStatus := "True", "False"
	updatedMachines := int64(3)
	if !updated {
		updatedStatus, updatingStatus = "False", "True"
		updatedMachines = 1
	}
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "machineconfiguration.openshift.io/v1",
		"kind":       "MachineConfigPool",
		"metadata": map[string]interface{}{
			"name":       name,
			"generation": int64(2),
		},
		"status": map[string]interface{}{
			"observedGeneration":  int64(2),
			"machineCount":        int64(3),
			"updatedMachineCount": updatedMachines,
			"conditions": []interface{}{
				map[string]interface{}{"type": "Updated", "status": updatedStatus},
				map[string]interface{}{"type": "Updating", "status": updatingStatus},
			},
		},
	}}
}

var _ = Describe("MirrorPolicy", func() {
	const policyName = "brew-registry"

	var (
		ctx       context.Context
		fakeClock *clocktesting.FakeClock
		start     time.Time
		dynamic   *fake.FakeDynamicClient
		policy    *openshift.MirrorPolicy
		poolGets  int
		mirrors   map[string][]string
	)

	BeforeEach(func() {
		ctx = context.Background()
		start = time.Now()
		fakeClock = clocktesting.NewFakeClock(start)
		dynamic = fake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), cluster.ListKinds)
		poolGets = 0
		dynamic.PrependReactor("get", "machineconfigpools", func(k8stesting.Action) (bool, runtime.Object, error) {
			poolGets++
			return false, nil, nil
		})

		logger := logrus.NewEntry(logrus.New())
		client := cluster.NewForDynamic(dynamic, logger)
		policy = openshift.NewMirrorPolicy(client, poll.NewPoller(poll.WithClock(fakeClock), poll.WithLogger(logger)), logger)
		mirrors = map[string][]string{
			"registry.redhat.io/fuse7":      {"brew.registry.redhat.io/fuse7"},
			"registry.redhat.io/integration": {"brew.registry.redhat.io/integration", "mirror.example.com/integration"},
		}
	})

	addPool := func(obj *unstructured.Unstructured) {
		Expect(dynamic.Tracker().Create(cluster.MachineConfigPools.GVR, obj, "")).To(Succeed())
	}

	getPolicy := func() operatorv1alpha1.ImageContentSourcePolicy {
		obj, err := dynamic.Resource(cluster.ImageContentSourcePolicies.GVR).Get(ctx, policyName, metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		var icsp operatorv1alpha1.ImageContentSourcePolicy
		Expect(runtime.DefaultUnstructuredConverter.FromUnstructured(obj.Object, &icsp)).To(Succeed())
		return icsp
	}

	It("renders sources in a stable order", func() {
		icsp := openshift.NewImageContentSourcePolicy(policyName, mirrors)
		Expect(icsp.Kind).To(Equal("ImageContentSourcePolicy"))
		Expect(icsp.APIVersion).To(Equal("operator.openshift.io/v1alpha1"))
		Expect(icsp.Spec.RepositoryDigestMirrors).To(Equal([]operatorv1alpha1.RepositoryDigestMirrors{
			{Source: "registry.redhat.io/fuse7", Mirrors: []string{"brew.registry.redhat.io/fuse7"}},
			{Source: "registry.redhat.io/integration", Mirrors: []string{"brew.registry.redhat.io/integration", "mirror.example.com/integration"}},
		}))
	})

	When("the pools are already updated", func() {
		BeforeEach(func() {
			addPool(machineConfigPool("master", true))
			addPool(machineConfigPool("worker", true))
		})

		It("creates the policy and returns after one check", func() {
			Expect(policy.Apply(ctx, policyName, mirrors)).To(Succeed())
			Expect(getPolicy().Spec.RepositoryDigestMirrors).To(HaveLen(2))
			Expect(poolGets).To(Equal(2))
			Expect(fakeClock.Since(start)).To(BeZero())
		})

		It("replaces an existing policy", func() {
			Expect(policy.Apply(ctx, policyName, mirrors)).To(Succeed())
			Expect(policy.Apply(ctx, policyName, map[string][]string{
				"quay.io/example": {"mirror.example.com/example"},
			})).To(Succeed())

			Expect(getPolicy().Spec.RepositoryDigestMirrors).To(ConsistOf(operatorv1alpha1.RepositoryDigestMirrors{
				Source:  "quay.io/example",
				Mirrors: []string{"mirror.example.com/example"},
			}))
		})

		It("rejects a source without mirrors", func() {
			err := policy.Apply(ctx, policyName, map[string][]string{"quay.io/example": nil})
			Expect(err).To(HaveOccurred())
			Expect(poolGets).To(BeZero())
		})
	})

	When("the master pool is rolling out", func() {
		BeforeEach(func() {
			addPool(machineConfigPool("master", false))
			addPool(machineConfigPool("worker", true))
			dynamic.PrependReactor("get", "machineconfigpools", func(k8stesting.Action) (bool, runtime.Object, error) {
				// the counting reactor has not seen this call yet
				if poolGets == 2 {
					Expect(dynamic.Tracker().Update(cluster.MachineConfigPools.GVR, machineConfigPool("master", true), "")).To(Succeed())
				}
				return false, nil, nil
			})
		})

		It("waits for it every thirty seconds", func() {
			Expect(policy.Apply(ctx, policyName, mirrors)).To(Succeed())
			Expect(poolGets).To(Equal(4))
			Expect(fakeClock.Since(start)).To(Equal(2 * openshift.PoolPollInterval))
		})
	})

	When("a pool has not observed its latest generation", func() {
		BeforeEach(func() {
			stale := machineConfigPool("master", true)
			Expect(unstructured.SetNestedField(stale.Object, int64(1), "status", "observedGeneration")).To(Succeed())
			addPool(stale)
			addPool(machineConfigPool("worker", true))
		})

		It("gives up after thirty minutes", func() {
			err := policy.Apply(ctx, policyName, mirrors)
			Expect(err).To(MatchError(poll.ErrDeadlineExceeded))
			Expect(fakeClock.Since(start)).To(BeNumerically(">=", openshift.PoolPollTimeout))
		})
	})

	When("a pool does not exist", func() {
		BeforeEach(func() {
			addPool(machineConfigPool("master", true))
			policy.Pools = []string{"master", "infra"}
		})

		It("reports the last lookup failure", func() {
			err := policy.Apply(ctx, policyName, mirrors)
			Expect(err).To(MatchError(poll.ErrDeadlineExceeded))
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})
	})
})
