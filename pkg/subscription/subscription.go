package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
	"github.com/sirupsen/logrus"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/mcarlett/marketplace-utilities/pkg/bundle"
	"github.com/mcarlett/marketplace-utilities/pkg/catalog"
	"github.com/mcarlett/marketplace-utilities/pkg/cluster"
	"github.com/mcarlett/marketplace-utilities/pkg/manifests"
	"github.com/mcarlett/marketplace-utilities/pkg/poll"
)

const (
	EditPollInterval = 1 * time.Second
	EditPollTimeout  = 5 * time.Second

	// Upgrades on real clusters can take hours, the install plan wait is
	// bounded generously.
	InstallPlanPollInterval = 2 * time.Second
	InstallPlanPollTimeout  = 12000 * time.Second

	NamespacePollInterval = 1 * time.Second
	NamespacePollTimeout  = 30 * time.Second
)

// Request describes the Subscription to create.
type Request struct {
	// Name defaults to Package.
	Name      string
	Namespace string
	Package   string
	Channel   string
	// StartingCSV pins the first installed version, empty means the channel head.
	StartingCSV            string
	CatalogSource          string
	CatalogSourceNamespace string
}

// Handle identifies a Subscription created by a Manager.
type Handle struct {
	Name                   string
	Namespace              string
	Package                string
	Channel                string
	StartingCSV            string
	CatalogSource          string
	CatalogSourceNamespace string
}

func (h *Handle) String() string {
	return h.Namespace + "/" + h.Name
}

// Manager drives OLM Subscriptions and observes the InstallPlans they produce.
type Manager struct {
	client cluster.Client
	poller *poll.Poller
	logger *logrus.Entry
}

func NewManager(client cluster.Client, poller *poll.Poller, logger *logrus.Entry) *Manager {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if poller == nil {
		poller = poll.NewPoller(poll.WithLogger(logger))
	}
	return &Manager{
		client: client,
		poller: poller,
		logger: logger,
	}
}

// Subscribe makes sure the namespace exists, gives it an OperatorGroup and
// creates or replaces the Subscription.
func (m *Manager) Subscribe(ctx context.Context, req Request) (*Handle, error) {
	if req.Name == "" {
		req.Name = req.Package
	}
	if req.CatalogSourceNamespace == "" {
		req.CatalogSourceNamespace = catalog.MarketplaceNamespace
	}
	if req.Namespace == "" || req.Package == "" || req.Channel == "" || req.CatalogSource == "" {
		return nil, fmt.Errorf("subscription %q needs a namespace, a package, a channel and a catalog source", req.Name)
	}
	logger := m.logger.WithFields(logrus.Fields{
		"subscription": req.Name,
		"namespace":    req.Namespace,
	})

	if err := m.ensureNamespace(ctx, req.Namespace); err != nil {
		return nil, err
	}

	ogText, err := manifests.OperatorGroup(manifests.OperatorGroupParams{
		Name:      req.Namespace,
		Namespace: req.Namespace,
	})
	if err != nil {
		return nil, err
	}
	if err := m.apply(ctx, cluster.OperatorGroups, ogText); err != nil {
		return nil, fmt.Errorf("error creating operator group in %s: %w", req.Namespace, err)
	}

	subText, err := manifests.Subscription(manifests.SubscriptionParams{
		Name:            req.Name,
		Namespace:       req.Namespace,
		Package:         req.Package,
		Channel:         req.Channel,
		StartingCSV:     req.StartingCSV,
		Source:          req.CatalogSource,
		SourceNamespace: req.CatalogSourceNamespace,
	})
	if err != nil {
		return nil, err
	}
	if err := m.apply(ctx, cluster.Subscriptions, subText); err != nil {
		return nil, fmt.Errorf("error creating subscription %s/%s: %w", req.Namespace, req.Name, err)
	}
	logger.WithFields(logrus.Fields{
		"package":     req.Package,
		"channel":     req.Channel,
		"startingCSV": req.StartingCSV,
	}).Info("created subscription")

	return &Handle{
		Name:                   req.Name,
		Namespace:              req.Namespace,
		Package:                req.Package,
		Channel:                req.Channel,
		StartingCSV:            req.StartingCSV,
		CatalogSource:          req.CatalogSource,
		CatalogSourceNamespace: req.CatalogSourceNamespace,
	}, nil
}

// SubscribeBundle subscribes to the package of b on its default channel,
// starting at its CSV.
func (m *Manager) SubscribeBundle(ctx context.Context, namespace string, b *bundle.Bundle, catalogSource, catalogSourceNamespace string) (*Handle, error) {
	return m.Subscribe(ctx, Request{
		Name:                   b.PackageName(),
		Namespace:              namespace,
		Package:                b.PackageName(),
		Channel:                b.DefaultChannel(),
		StartingCSV:            b.CSVName(),
		CatalogSource:          catalogSource,
		CatalogSourceNamespace: catalogSourceNamespace,
	})
}

func (m *Manager) apply(ctx context.Context, r cluster.Resource, text string) error {
	obj, err := cluster.FromString(text)
	if err != nil {
		return err
	}
	_, err = m.client.CreateOrReplace(ctx, r, obj)
	return err
}

func (m *Manager) ensureNamespace(ctx context.Context, namespace string) error {
	_, err := m.client.Get(ctx, cluster.Namespaces, "", namespace)
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return fmt.Errorf("error looking up namespace %s: %w", namespace, err)
	}

	m.logger.Infof("creating namespace %s", namespace)
	ns := &unstructured.Unstructured{}
	ns.SetAPIVersion("v1")
	ns.SetKind("Namespace")
	ns.SetName(namespace)
	if _, err := m.client.CreateOrReplace(ctx, cluster.Namespaces, ns); err != nil {
		return fmt.Errorf("error creating namespace %s: %w", namespace, err)
	}

	err = m.poller.Until(ctx, NamespacePollInterval, NamespacePollTimeout, func(ctx context.Context) (bool, error) {
		_, err := m.client.Get(ctx, cluster.Namespaces, "", namespace)
		if apierrors.IsNotFound(err) {
			return false, nil
		}
		return err == nil, err
	})
	if err != nil {
		return fmt.Errorf("namespace %s was not created: %w", namespace, err)
	}
	return nil
}

// Update points the Subscription at channel. Each attempt works on a fresh
// copy of the Subscription, so edits that conflict with OLM's own writes are
// retried until the edit window closes.
func (m *Manager) Update(ctx context.Context, h *Handle, channel string) error {
	err := m.poller.Until(ctx, EditPollInterval, EditPollTimeout, func(ctx context.Context) (bool, error) {
		sub, err := m.client.Get(ctx, cluster.Subscriptions, h.Namespace, h.Name)
		if err != nil {
			return false, err
		}
		if err := unstructured.SetNestedField(sub.Object, channel, "spec", "channel"); err != nil {
			return false, err
		}
		if _, err := m.client.Update(ctx, cluster.Subscriptions, sub); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return fmt.Errorf("error moving subscription %s to channel %s: %w", h, channel, err)
	}

	m.logger.WithField("subscription", h.String()).Infof("moved subscription from channel %s to %s", h.Channel, channel)
	h.Channel = channel
	return nil
}

// WaitForInstall waits for a completed InstallPlan that installed csv.
func (m *Manager) WaitForInstall(ctx context.Context, h *Handle, csv string) error {
	m.logger.WithField("subscription", h.String()).Infof("waiting for %s to be installed", csv)
	err := m.waitForPlan(ctx, h, func(lookup bundleLookup) bool {
		return lookup.identifier == csv
	})
	if err != nil {
		return fmt.Errorf("csv %s was not installed in %s: %w", csv, h.Namespace, err)
	}
	return nil
}

// WaitForUpdate waits for a completed InstallPlan in the subscription
// namespace for the upgrade edge previousCSV -> newCSV. Plans that are still
// running, failed, or belong to other upgrades do not count.
func (m *Manager) WaitForUpdate(ctx context.Context, h *Handle, previousCSV, newCSV string) error {
	m.logger.WithField("subscription", h.String()).Infof("waiting for update from %s to %s", previousCSV, newCSV)
	err := m.waitForPlan(ctx, h, func(lookup bundleLookup) bool {
		return lookup.identifier == newCSV && lookup.replaces == previousCSV
	})
	if err != nil {
		return fmt.Errorf("update from %s to %s did not complete in %s: %w", previousCSV, newCSV, h.Namespace, err)
	}
	return nil
}

// UpdateToBundle moves the subscription to the default channel of to and,
// when wait is set, waits until from has been replaced by to.
func (m *Manager) UpdateToBundle(ctx context.Context, h *Handle, from, to *bundle.Bundle, wait bool) error {
	if err := m.Update(ctx, h, to.DefaultChannel()); err != nil {
		return err
	}
	if !wait {
		return nil
	}
	return m.WaitForUpdate(ctx, h, from.CSVName(), to.CSVName())
}

type bundleLookup struct {
	identifier string
	replaces   string
}

func (m *Manager) waitForPlan(ctx context.Context, h *Handle, match func(bundleLookup) bool) error {
	return m.poller.Until(ctx, InstallPlanPollInterval, InstallPlanPollTimeout, func(ctx context.Context) (bool, error) {
		plans, err := m.client.List(ctx, cluster.InstallPlans, h.Namespace)
		if err != nil {
			return false, err
		}
		for _, plan := range plans.Items {
			lookups, err := completedLookups(plan)
			if err != nil {
				m.logger.Debugf("skipping install plan %s: %v", plan.GetName(), err)
				continue
			}
			for _, lookup := range lookups {
				if match(lookup) {
					m.logger.Debugf("install plan %s matches", plan.GetName())
					return true, nil
				}
			}
		}
		return false, nil
	})
}

var errNotComplete = errors.New("install plan is not complete")

// completedLookups returns the bundle lookups of a Complete plan.
func completedLookups(plan unstructured.Unstructured) ([]bundleLookup, error) {
	phase, _, err := unstructured.NestedString(plan.Object, "status", "phase")
	if err != nil {
		return nil, err
	}
	if phase != string(operatorsv1alpha1.InstallPlanPhaseComplete) {
		return nil, errNotComplete
	}

	raw, _, err := unstructured.NestedSlice(plan.Object, "status", "bundleLookups")
	if err != nil {
		return nil, err
	}
	lookups := make([]bundleLookup, 0, len(raw))
	for _, r := range raw {
		entry, ok := r.(map[string]interface{})
		if !ok {
			continue
		}
		identifier, _, _ := unstructured.NestedString(entry, "identifier")
		replaces, _, _ := unstructured.NestedString(entry, "replaces")
		lookups = append(lookups, bundleLookup{identifier: identifier, replaces: replaces})
	}
	return lookups, nil
}
