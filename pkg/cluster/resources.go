package cluster

import (
	configv1 "github.com/openshift/api/config/v1"
	openshiftoperatorv1alpha1 "github.com/openshift/api/operator/v1alpha1"
	operatorsv1 "github.com/operator-framework/api/pkg/operators/v1"
	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Resource addresses a kind of object on the cluster.
type Resource struct {
	GVR        schema.GroupVersionResource
	Namespaced bool
}

func (r Resource) String() string {
	return r.GVR.String()
}

var (
	Namespaces = Resource{GVR: corev1.SchemeGroupVersion.WithResource("namespaces")}
	Pods       = Resource{GVR: corev1.SchemeGroupVersion.WithResource("pods"), Namespaced: true}

	Subscriptions          = Resource{GVR: operatorsv1alpha1.SchemeGroupVersion.WithResource("subscriptions"), Namespaced: true}
	InstallPlans           = Resource{GVR: operatorsv1alpha1.SchemeGroupVersion.WithResource("installplans"), Namespaced: true}
	CatalogSources         = Resource{GVR: operatorsv1alpha1.SchemeGroupVersion.WithResource("catalogsources"), Namespaced: true}
	ClusterServiceVersions = Resource{GVR: operatorsv1alpha1.SchemeGroupVersion.WithResource("clusterserviceversions"), Namespaced: true}
	OperatorGroups         = Resource{GVR: operatorsv1.SchemeGroupVersion.WithResource("operatorgroups"), Namespaced: true}

	ImageContentSourcePolicies = Resource{GVR: openshiftoperatorv1alpha1.GroupVersion.WithResource("imagecontentsourcepolicies")}
	OperatorHubs               = Resource{GVR: configv1.GroupVersion.WithResource("operatorhubs")}
	ClusterOperators           = Resource{GVR: configv1.GroupVersion.WithResource("clusteroperators")}
	MachineConfigPools         = Resource{GVR: schema.GroupVersionResource{Group: "machineconfiguration.openshift.io", Version: "v1", Resource: "machineconfigpools"}}
)

// ListKinds maps every resource above to its list kind, as the fake dynamic
// client requires for kinds missing from its scheme.
var ListKinds = map[schema.GroupVersionResource]string{
	Namespaces.GVR:                 "NamespaceList",
	Pods.GVR:                       "PodList",
	Subscriptions.GVR:              "SubscriptionList",
	InstallPlans.GVR:               "InstallPlanList",
	CatalogSources.GVR:             "CatalogSourceList",
	ClusterServiceVersions.GVR:     "ClusterServiceVersionList",
	OperatorGroups.GVR:             "OperatorGroupList",
	ImageContentSourcePolicies.GVR: "ImageContentSourcePolicyList",
	OperatorHubs.GVR:               "OperatorHubList",
	ClusterOperators.GVR:           "ClusterOperatorList",
	MachineConfigPools.GVR:         "MachineConfigPoolList",
}
