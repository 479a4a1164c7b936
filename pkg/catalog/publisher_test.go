package catalog_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/dynamic/fake"
	k8stesting "k8s.io/client-go/testing"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/mcarlett/marketplace-utilities/pkg/catalog"
	"github.com/mcarlett/marketplace-utilities/pkg/cluster"
	"github.com/mcarlett/marketplace-utilities/pkg/poll"
)

func pod(name, phase string) *unstructured.Unstructured {
	return &unstructured.Unstructured{Object: map[string]interface{}{
		"apiVersion": "v1",
		"kind":       "Pod",
		"metadata": map[string]interface{}{
			"name":      name,
			"namespace": catalog.MarketplaceNamespace,
		},
		"status": map[string]interface{}{
			"phase": phase,
		},
	}}
}

func specString(obj *unstructured.Unstructured, field string) string {
	value, _, err := unstructured.NestedString(obj.Object, "spec", field)
	Expect(err).NotTo(HaveOccurred())
	return value
}

var _ = Describe("Publisher", func() {
	const (
		image       = "quay.io/example/index:latest"
		catalogName = "test-catalog"
	)

	var (
		ctx       context.Context
		fakeClock *clocktesting.FakeClock
		start     time.Time
		dynamic   *fake.FakeDynamicClient
		publisher *catalog.Publisher
		podLists  int
	)

	BeforeEach(func() {
		ctx = context.Background()
		start = time.Now()
		fakeClock = clocktesting.NewFakeClock(start)
		dynamic = fake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), cluster.ListKinds)
		podLists = 0
		dynamic.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
			podLists++
			return false, nil, nil
		})

		logger := logrus.NewEntry(logrus.New())
		client := cluster.NewForDynamic(dynamic, logger)
		publisher = catalog.NewPublisher(client, poll.NewPoller(poll.WithClock(fakeClock), poll.WithLogger(logger)), logger)
	})

	addPod := func(obj *unstructured.Unstructured) {
		Expect(dynamic.Tracker().Create(cluster.Pods.GVR, obj, catalog.MarketplaceNamespace)).To(Succeed())
	}

	getCatalogSource := func() *unstructured.Unstructured {
		cs, err := dynamic.Resource(cluster.CatalogSources.GVR).Namespace(catalog.MarketplaceNamespace).Get(ctx, catalogName, metav1.GetOptions{})
		Expect(err).NotTo(HaveOccurred())
		return cs
	}

	When("the catalog pod is running", func() {
		BeforeEach(func() {
			addPod(pod("unrelated-abcde", "Running"))
			addPod(pod(catalogName+"-x7k2p", "running"))
		})

		It("creates the catalog source and returns", func() {
			Expect(publisher.Publish(ctx, image, catalogName)).To(Succeed())

			cs := getCatalogSource()
			Expect(specString(cs, "image")).To(Equal(image))
			Expect(specString(cs, "displayName")).To(Equal(catalogName))
			Expect(podLists).To(Equal(1))
		})
	})

	When("the catalog pod starts late", func() {
		BeforeEach(func() {
			addPod(pod(catalogName+"-x7k2p", "Pending"))
			dynamic.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
				// the counting reactor has not seen this call yet
				if podLists == 2 {
					p := pod(catalogName+"-x7k2p", "Running")
					Expect(dynamic.Tracker().Update(cluster.Pods.GVR, p, catalog.MarketplaceNamespace)).To(Succeed())
				}
				return false, nil, nil
			})
		})

		It("keeps polling every five seconds", func() {
			Expect(publisher.Publish(ctx, image, catalogName)).To(Succeed())
			Expect(podLists).To(Equal(3))
			Expect(fakeClock.Since(start)).To(Equal(2 * catalog.PodPollInterval))
		})
	})

	When("only other catalogs are running", func() {
		BeforeEach(func() {
			addPod(pod("other-catalog-x7k2p", "Running"))
		})

		It("times out after a minute and leaves the catalog source behind", func() {
			err := publisher.Publish(ctx, image, catalogName)
			Expect(err).To(MatchError(poll.ErrDeadlineExceeded))
			Expect(fakeClock.Since(start)).To(BeNumerically(">=", catalog.PodPollTimeout))
			Expect(podLists).To(Equal(12))

			getCatalogSource()
		})
	})

	When("listing pods fails transiently", func() {
		var failures int

		BeforeEach(func() {
			failures = 0
			addPod(pod(catalogName+"-x7k2p", "Running"))
			dynamic.PrependReactor("list", "pods", func(k8stesting.Action) (bool, runtime.Object, error) {
				if failures < 2 {
					failures++
					return true, nil, errors.New("connection refused")
				}
				return false, nil, nil
			})
		})

		It("retries", func() {
			Expect(publisher.Publish(ctx, image, catalogName)).To(Succeed())
			Expect(failures).To(Equal(2))
			Expect(podLists).To(Equal(1))
			Expect(fakeClock.Since(start)).To(Equal(2 * catalog.PodPollInterval))
		})
	})

	When("the catalog source already exists", func() {
		BeforeEach(func() {
			addPod(pod(catalogName+"-x7k2p", "Running"))
			Expect(publisher.Publish(ctx, "quay.io/example/index:old", catalogName)).To(Succeed())
		})

		It("replaces it", func() {
			Expect(publisher.Publish(ctx, image, catalogName)).To(Succeed())
			Expect(specString(getCatalogSource(), "image")).To(Equal(image))
		})
	})

	Describe("Remove", func() {
		It("deletes the catalog source", func() {
			addPod(pod(catalogName+"-x7k2p", "Running"))
			Expect(publisher.Publish(ctx, image, catalogName)).To(Succeed())

			publisher.Remove(ctx, catalogName)

			_, err := dynamic.Resource(cluster.CatalogSources.GVR).Namespace(catalog.MarketplaceNamespace).Get(ctx, catalogName, metav1.GetOptions{})
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})

		It("swallows failures", func() {
			Expect(func() { publisher.Remove(ctx, "missing") }).NotTo(Panic())
		})
	})
})
