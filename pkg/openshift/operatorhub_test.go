package openshift_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/dynamic/fake"

	"github.com/mcarlett/marketplace-utilities/pkg/cluster"
	"github.com/mcarlett/marketplace-utilities/pkg/openshift"
)

var _ = Describe("OperatorHub", func() {
	var (
		ctx     context.Context
		dynamic *fake.FakeDynamicClient
		hub     *openshift.OperatorHub
	)

	BeforeEach(func() {
		ctx = context.Background()
		dynamic = fake.NewSimpleDynamicClientWithCustomListKinds(runtime.NewScheme(), cluster.ListKinds)
		logger := logrus.NewEntry(logrus.New())
		hub = openshift.NewOperatorHub(cluster.NewForDynamic(dynamic, logger), logger)
	})

	When("the cluster has an operatorhub", func() {
		BeforeEach(func() {
			obj := &unstructured.Unstructured{Object: map[string]interface{}{
				"apiVersion": "config.openshift.io/v1",
				"kind":       "OperatorHub",
				"metadata": map[string]interface{}{
					"name": openshift.OperatorHubName,
				},
				"spec": map[string]interface{}{},
			}}
			Expect(dynamic.Tracker().Create(cluster.OperatorHubs.GVR, obj, "")).To(Succeed())
		})

		It("starts with the default sources enabled", func() {
			Expect(hub.DefaultSourcesDisabled(ctx)).To(BeFalse())
		})

		It("disables and re-enables the default sources", func() {
			Expect(hub.SetDefaultSourcesDisabled(ctx, true)).To(Succeed())
			Expect(hub.DefaultSourcesDisabled(ctx)).To(BeTrue())

			Expect(hub.SetDefaultSourcesDisabled(ctx, false)).To(Succeed())
			Expect(hub.DefaultSourcesDisabled(ctx)).To(BeFalse())
		})
	})

	When("the cluster has no operatorhub", func() {
		It("reports not found", func() {
			_, err := hub.DefaultSourcesDisabled(ctx)
			Expect(apierrors.IsNotFound(err)).To(BeTrue())

			err = hub.SetDefaultSourcesDisabled(ctx, true)
			Expect(apierrors.IsNotFound(err)).To(BeTrue())
		})
	})
})
