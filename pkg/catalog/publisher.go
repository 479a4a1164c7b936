package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/runtime"

	"github.com/mcarlett/marketplace-utilities/pkg/cluster"
	"github.com/mcarlett/marketplace-utilities/pkg/manifests"
	"github.com/mcarlett/marketplace-utilities/pkg/poll"
)

const (
	// MarketplaceNamespace is where OLM looks for global catalog sources.
	MarketplaceNamespace = "openshift-marketplace"

	PodPollInterval = 5 * time.Second
	PodPollTimeout  = 60 * time.Second
)

// Publisher makes index images available to OLM as CatalogSources.
type Publisher struct {
	client    cluster.Client
	poller    *poll.Poller
	logger    *logrus.Entry
	namespace string
}

type PublisherOption func(*Publisher)

// WithNamespace publishes catalog sources somewhere other than the marketplace namespace.
func WithNamespace(namespace string) PublisherOption {
	return func(p *Publisher) {
		p.namespace = namespace
	}
}

func NewPublisher(client cluster.Client, poller *poll.Poller, logger *logrus.Entry, opts ...PublisherOption) *Publisher {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if poller == nil {
		poller = poll.NewPoller(poll.WithLogger(logger))
	}
	p := &Publisher{
		client:    client,
		poller:    poller,
		logger:    logger,
		namespace: MarketplaceNamespace,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Namespace() string {
	return p.namespace
}

// Publish creates or replaces the CatalogSource name serving image, then waits
// for its registry pod to be running. A catalog whose pod never starts is left
// in place.
func (p *Publisher) Publish(ctx context.Context, image, name string) error {
	text, err := manifests.CatalogSource(manifests.CatalogSourceParams{
		Name:        name,
		Namespace:   p.namespace,
		DisplayName: name,
		Image:       image,
	})
	if err != nil {
		return err
	}
	obj, err := cluster.FromString(text)
	if err != nil {
		return fmt.Errorf("error decoding catalog source %s: %w", name, err)
	}

	logger := p.logger.WithFields(logrus.Fields{"catalog": name, "image": image})
	logger.Info("creating catalog source")
	if _, err := p.client.CreateOrReplace(ctx, cluster.CatalogSources, obj); err != nil {
		return fmt.Errorf("error creating catalog source %s/%s: %w", p.namespace, name, err)
	}

	logger.Info("waiting for catalog pod")
	err = p.poller.Until(ctx, PodPollInterval, PodPollTimeout, func(ctx context.Context) (bool, error) {
		return p.catalogPodRunning(ctx, name)
	})
	if err != nil {
		return fmt.Errorf("catalog source %s/%s pod is not running: %w", p.namespace, name, err)
	}
	return nil
}

func (p *Publisher) catalogPodRunning(ctx context.Context, name string) (bool, error) {
	pods, err := p.client.List(ctx, cluster.Pods, p.namespace)
	if err != nil {
		return false, err
	}
	for _, item := range pods.Items {
		if !strings.HasPrefix(item.GetName(), name) {
			continue
		}
		var pod corev1.Pod
		if err := runtime.DefaultUnstructuredConverter.FromUnstructured(item.Object, &pod); err != nil {
			return false, err
		}
		if strings.EqualFold(string(pod.Status.Phase), string(corev1.PodRunning)) {
			return true, nil
		}
	}
	return false, nil
}

// Remove deletes the CatalogSource. Failures are logged and otherwise ignored
// so teardown never blocks the next run.
func (p *Publisher) Remove(ctx context.Context, name string) {
	if err := p.client.Delete(ctx, cluster.CatalogSources, p.namespace, name); err != nil {
		p.logger.WithField("catalog", name).Warnf("error removing catalog source: %v", err)
		return
	}
	p.logger.WithField("catalog", name).Info("removed catalog source")
}
