package cluster

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
)

// Client reads and writes cluster objects without depending on their schema.
type Client interface {
	Get(ctx context.Context, r Resource, namespace, name string) (*unstructured.Unstructured, error)
	List(ctx context.Context, r Resource, namespace string) (*unstructured.UnstructuredList, error)
	// CreateOrReplace creates obj, or overwrites the existing object of the same name.
	CreateOrReplace(ctx context.Context, r Resource, obj *unstructured.Unstructured) (*unstructured.Unstructured, error)
	Update(ctx context.Context, r Resource, obj *unstructured.Unstructured) (*unstructured.Unstructured, error)
	// MergePatch applies a JSON merge patch to the named object.
	MergePatch(ctx context.Context, r Resource, namespace, name string, patch []byte) (*unstructured.Unstructured, error)
	Delete(ctx context.Context, r Resource, namespace, name string) error
}

// DynamicClient is the Client backed by the client-go dynamic client.
type DynamicClient struct {
	client dynamic.Interface
	logger *logrus.Entry
}

var _ Client = &DynamicClient{}

func NewForConfig(cfg *rest.Config, logger *logrus.Entry) (*DynamicClient, error) {
	client, err := dynamic.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating dynamic client: %w", err)
	}
	return NewForDynamic(client, logger), nil
}

func NewForDynamic(client dynamic.Interface, logger *logrus.Entry) *DynamicClient {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &DynamicClient{
		client: client,
		logger: logger,
	}
}

func (c *DynamicClient) resource(r Resource, namespace string) dynamic.ResourceInterface {
	if r.Namespaced {
		return c.client.Resource(r.GVR).Namespace(namespace)
	}
	return c.client.Resource(r.GVR)
}

func (c *DynamicClient) Get(ctx context.Context, r Resource, namespace, name string) (*unstructured.Unstructured, error) {
	return c.resource(r, namespace).Get(ctx, name, metav1.GetOptions{})
}

func (c *DynamicClient) List(ctx context.Context, r Resource, namespace string) (*unstructured.UnstructuredList, error) {
	return c.resource(r, namespace).List(ctx, metav1.ListOptions{})
}

func (c *DynamicClient) CreateOrReplace(ctx context.Context, r Resource, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	ri := c.resource(r, obj.GetNamespace())
	created, err := ri.Create(ctx, obj, metav1.CreateOptions{})
	if err == nil {
		c.logger.Debugf("created %s %s/%s", r, obj.GetNamespace(), obj.GetName())
		return created, nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return nil, err
	}

	existing, err := ri.Get(ctx, obj.GetName(), metav1.GetOptions{})
	if err != nil {
		return nil, err
	}
	replacement := obj.DeepCopy()
	replacement.SetResourceVersion(existing.GetResourceVersion())
	c.logger.Debugf("replacing %s %s/%s", r, obj.GetNamespace(), obj.GetName())
	return ri.Update(ctx, replacement, metav1.UpdateOptions{})
}

func (c *DynamicClient) Update(ctx context.Context, r Resource, obj *unstructured.Unstructured) (*unstructured.Unstructured, error) {
	return c.resource(r, obj.GetNamespace()).Update(ctx, obj, metav1.UpdateOptions{})
}

func (c *DynamicClient) MergePatch(ctx context.Context, r Resource, namespace, name string, patch []byte) (*unstructured.Unstructured, error) {
	c.logger.Debugf("patching %s %s/%s: %s", r, namespace, name, patch)
	return c.resource(r, namespace).Patch(ctx, name, types.MergePatchType, patch, metav1.PatchOptions{})
}

func (c *DynamicClient) Delete(ctx context.Context, r Resource, namespace, name string) error {
	return c.resource(r, namespace).Delete(ctx, name, metav1.DeleteOptions{})
}
