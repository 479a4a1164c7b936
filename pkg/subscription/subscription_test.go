package subscription_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/client-go/dynamic/fake"
	k8stesting "k8s.io/client-go/testing"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/mcarlett/marketplace-utilities/pkg/bundle"
	"github.com/mcarlett/marketplace-utilities/pkg/cluster"
	"github.com/mcarlett/marketplace-utilities/pkg/poll"
	"github.com/mcarlett/marketplace-utilities/pkg/subscription"
)

const testNamespace = "operators"

func installPlan(name, phase string, lookups ...map[string]interface{}) *unstructured.Unstructured {
	raw := make([]interface{}, 0, len(lookups))
	for _, l := range lookups {
		raw = append(raw, l)
	}
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "operators.coreos.com/v1alpha1",
		"kind":       "InstallPlan",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": testNamespace,
		},
		"status": map[string]interface{}{
			"phase":         phase,
			"bundleLookups": raw,
		},
	}}
}

func lookup(identifier, replaces string) map[string]interface{} {
	return map[string]interface{}{
		"identifier": identifier,
		"replaces":   replaces,
		"path":       "quay.io/example/etcd-bundle:" + identifier,
	}
}

func testBundle(csvName, channels string) *bundle.Bundle {
	csv := &unstructured.Unstructured{}
	csv.SetAPIVersion("operators.coreos.com/v1alpha1")
	csv.SetKind("ClusterServiceVersion")
	csv.SetName(csvName)
	return bundle.New("quay.io/example/etcd-bundle:"+csvName, bundle.Annotations{
		bundle.PackageLabel:   "etcd",
		bundle.ChannelsLabel:  channels,
		bundle.MediatypeLabel: "registry+v1",
	}, csv, nil)
}

var _ = Describe("Manager", func() {
	var (
		ctx       context.Context
		start     time.Time
		fakeClock *clocktesting.FakeClock
		dynamic   *fake.FakeDynamicClient
		manager   *subscription.Manager
	)

	BeforeEach(func() {
		ctx = context.Background()
		start = time.Now()
		fakeClock = clocktesting.NewFakeClock(start)
		dynamic = fake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), cluster.ListKinds)

		logger := logrus.NewEntry(logrus.New())
		manager = subscription.NewManager(
			cluster.NewForDynamic(dynamic, logger),
			poll.NewPoller(poll.WithClock(fakeClock), poll.WithLogger(logger)),
			logger,
		)
	})

	get := func(r cluster.Resource, namespace, name string) *unstructured.Unstructured {
		var ri interface {
			Get(context.Context, string, metav1.GetOptions, ...string) (*unstructured.Unstructured, error)
		} = dynamic.Resource(r.GVR)
		if r.Namespaced {
			ri = dynamic.Resource(r.GVR).Namespace(namespace)
		}
		obj, err := ri.Get(ctx, name, metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		return obj
	}

	field := func(obj *unstructured.Unstructured, path ...string) string {
		value, _, err := unstructured.NestedString(obj.Object, path...)
		Expect(err).NotTo(HaveOccurred())
		return value
	}

	addPlan := func(plan *unstructured.Unstructured) {
		Expect(dynamic.Tracker().Create(cluster.InstallPlans.GVR, plan, testNamespace)).To(Succeed())
	}

	Describe("Subscribe", func() {
		request := subscription.Request{
			Namespace:     testNamespace,
			Package:       "etcd",
			Channel:       "alpha",
			StartingCSV:   "etcdoperator.v0.9.2",
			CatalogSource: "test-catalog",
		}

		It("creates the namespace, the operator group and the subscription", func() {
			h, err := manager.Subscribe(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Name).To(Equal("etcd"))
			Expect(h.String()).To(Equal("operators/etcd"))

			get(cluster.Namespaces, "", testNamespace)

			og := get(cluster.OperatorGroups, testNamespace, testNamespace)
			targets, _, err := unstructured.NestedStringSlice(og.Object, "spec", "targetNamespaces")
			Expect(err).NotTo(HaveOccurred())
			Expect(targets).To(ConsistOf(testNamespace))

			sub := get(cluster.Subscriptions, testNamespace, "etcd")
			Expect(field(sub, "spec", "name")).To(Equal("etcd"))
			Expect(field(sub, "spec", "channel")).To(Equal("alpha"))
			Expect(field(sub, "spec", "startingCSV")).To(Equal("etcdoperator.v0.9.2"))
			Expect(field(sub, "spec", "source")).To(Equal("test-catalog"))
			Expect(field(sub, "spec", "sourceNamespace")).To(Equal("openshift-marketplace"))
		})

		It("reuses an existing namespace and replaces the subscription", func() {
			_, err := manager.Subscribe(ctx, request)
			Expect(err).NotTo(HaveOccurred())

			again := request
			again.Channel = "stable"
			_, err = manager.Subscribe(ctx, again)
			Expect(err).NotTo(HaveOccurred())

			Expect(field(get(cluster.Subscriptions, testNamespace, "etcd"), "spec", "channel")).To(Equal("stable"))
		})

		It("waits for a new namespace to become readable", func() {
			gets := 0
			dynamic.PrependReactor("get", "namespaces", func(k8stesting.Action) (bool, runtime.Object, error) {
				gets++
				// the first lookup decides whether to create, the next two see a lagging cache
				if gets <= 3 {
					return true, nil, apierrors.NewNotFound(schema.GroupResource{Resource: "namespaces"}, testNamespace)
				}
				return false, nil, nil
			})

			_, err := manager.Subscribe(ctx, request)
			Expect(err).NotTo(HaveOccurred())
			Expect(fakeClock.Since(start)).To(Equal(2 * subscription.NamespacePollInterval))
		})

		It("rejects incomplete requests", func() {
			_, err := manager.Subscribe(ctx, subscription.Request{Namespace: testNamespace, Package: "etcd"})
			Expect(err).To(HaveOccurred())
		})

		It("subscribes to a bundle on its default channel", func() {
			h, err := manager.SubscribeBundle(ctx, testNamespace, testBundle("etcdoperator.v0.9.4", "stable,alpha"), "test-catalog", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(h.Channel).To(Equal("stable"))
			Expect(h.StartingCSV).To(Equal("etcdoperator.v0.9.4"))
			Expect(h.CatalogSourceNamespace).To(Equal("openshift-marketplace"))
		})
	})

	Describe("Update", func() {
		var h *subscription.Handle

		BeforeEach(func() {
			var err error
			h, err = manager.Subscribe(ctx, subscription.Request{
				Namespace:     testNamespace,
				Package:       "etcd",
				Channel:       "alpha",
				CatalogSource: "test-catalog",
			})
			Expect(err).NotTo(HaveOccurred())
		})

		conflictTimes := func(n int) *int {
			updates := 0
			dynamic.PrependReactor("update", "subscriptions", func(k8stesting.Action) (bool, runtime.Object, error) {
				updates++
				if updates <= n {
					return true, nil, apierrors.NewConflict(schema.GroupResource{Group: "operators.coreos.com", Resource: "subscriptions"}, "etcd", nil)
				}
				return false, nil, nil
			})
			return &updates
		}

		It("moves the subscription to the new channel", func() {
			Expect(manager.Update(ctx, h, "stable")).To(Succeed())
			Expect(field(get(cluster.Subscriptions, testNamespace, "etcd"), "spec", "channel")).To(Equal("stable"))
			Expect(h.Channel).To(Equal("stable"))
		})

		It("retries edits that conflict", func() {
			updates := conflictTimes(2)

			Expect(manager.Update(ctx, h, "stable")).To(Succeed())
			Expect(*updates).To(Equal(3))
			Expect(fakeClock.Since(start)).To(Equal(2 * subscription.EditPollInterval))
			Expect(field(get(cluster.Subscriptions, testNamespace, "etcd"), "spec", "channel")).To(Equal("stable"))
		})

		It("gives up after five seconds", func() {
			updates := conflictTimes(100)

			err := manager.Update(ctx, h, "stable")
			Expect(err).To(MatchError(poll.ErrDeadlineExceeded))
			Expect(apierrors.IsConflict(err)).To(BeTrue(), "the last transient error is kept as the cause")
			Expect(*updates).To(Equal(5))
			Expect(h.Channel).To(Equal("alpha"))
		})

		It("moves to the default channel of a newer bundle", func() {
			from := testBundle("etcdoperator.v0.9.2", "alpha")
			to := testBundle("etcdoperator.v0.9.4", "beta,stable")

			Expect(manager.UpdateToBundle(ctx, h, from, to, false)).To(Succeed())
			Expect(h.Channel).To(Equal("beta"))
		})

		It("waits for the upgrade of a newer bundle", func() {
			from := testBundle("etcdoperator.v0.9.2", "alpha")
			to := testBundle("etcdoperator.v0.9.4", "stable")
			addPlan(installPlan("install-abcde", "Complete", lookup("etcdoperator.v0.9.4", "etcdoperator.v0.9.2")))

			Expect(manager.UpdateToBundle(ctx, h, from, to, true)).To(Succeed())
		})
	})

	Describe("WaitForUpdate", func() {
		h := &subscription.Handle{Name: "etcd", Namespace: testNamespace}

		It("matches a complete plan for the upgrade edge", func() {
			addPlan(installPlan("install-abcde", "Complete", lookup("a.v2", "a.v1")))

			Expect(manager.WaitForUpdate(ctx, h, "a.v1", "a.v2")).To(Succeed())
			Expect(fakeClock.Since(start)).To(BeZero())
		})

		It("ignores plans for other edges and plans that did not complete", func() {
			addPlan(installPlan("install-abcde", "Complete", lookup("a.v2", "a.v0")))
			addPlan(installPlan("install-fghij", "Installing", lookup("a.v2", "a.v1")))
			addPlan(installPlan("install-klmno", "Failed", lookup("a.v2", "a.v1")))

			err := manager.WaitForUpdate(ctx, h, "a.v1", "a.v2")
			Expect(err).To(MatchError(poll.ErrDeadlineExceeded))
			Expect(fakeClock.Since(start)).To(BeNumerically(">=", subscription.InstallPlanPollTimeout))
		})

		It("waits for the plan to complete", func() {
			addPlan(installPlan("install-abcde", "Installing", lookup("a.v2", "a.v1")))
			lists := 0
			dynamic.PrependReactor("list", "installplans", func(k8stesting.Action) (bool, runtime.Object, error) {
				lists++
				if lists == 4 {
					plan := installPlan("install-abcde", "Complete", lookup("a.v2", "a.v1"))
					Expect(dynamic.Tracker().Update(cluster.InstallPlans.GVR, plan, testNamespace)).To(Succeed())
				}
				return false, nil, nil
			})

			Expect(manager.WaitForUpdate(ctx, h, "a.v1", "a.v2")).To(Succeed())
			Expect(fakeClock.Since(start)).To(Equal(3 * subscription.InstallPlanPollInterval))
		})

		It("matches among several lookups of one plan", func() {
			addPlan(installPlan("install-abcde", "Complete",
				lookup("b.v1", ""),
				lookup("a.v2", "a.v1"),
			))

			Expect(manager.WaitForUpdate(ctx, h, "a.v1", "a.v2")).To(Succeed())
		})
	})

	Describe("WaitForInstall", func() {
		h := &subscription.Handle{Name: "etcd", Namespace: testNamespace}

		It("matches the installed csv regardless of what it replaces", func() {
			addPlan(installPlan("install-abcde", "Complete", lookup("a.v2", "a.v1")))

			Expect(manager.WaitForInstall(ctx, h, "a.v2")).To(Succeed())
		})

		It("does not match plans in other namespaces", func() {
			plan := installPlan("install-abcde", "Complete", lookup("a.v2", ""))
			plan.SetNamespace("elsewhere")
			Expect(dynamic.Tracker().Create(cluster.InstallPlans.GVR, plan, "elsewhere")).To(Succeed())

			err := manager.WaitForInstall(ctx, h, "a.v2")
			Expect(err).To(MatchError(poll.ErrDeadlineExceeded))
		})
	})
})
