package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mcarlett/marketplace-utilities/pkg/bundle"
	"github.com/mcarlett/marketplace-utilities/pkg/containertools"
)

var (
	// ErrNotPushed is returned when publishing an index that was never pushed.
	ErrNotPushed = errors.New("index image has not been pushed")
	// ErrNoPublisher is returned by cluster operations on an index without a catalog publisher.
	ErrNoPublisher = errors.New("index has no catalog publisher")
)

type State int

const (
	Empty State = iota
	Building
	Pushed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Building:
		return "Building"
	case Pushed:
		return "Pushed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// BundleBuilder extracts bundle metadata from a bundle image.
type BundleBuilder interface {
	Build(image string) (*bundle.Bundle, error)
}

// CatalogPublisher exposes index images to the cluster.
type CatalogPublisher interface {
	Publish(ctx context.Context, image, name string) error
	Remove(ctx context.Context, name string)
}

type Options struct {
	Builder  BundleBuilder
	Packager Packager
	// Runner pulls and pushes the index image.
	Runner containertools.CommandRunner
	// Auth holds the push credentials. Nil pushes with the tool's own login.
	Auth     *RegistryAuth
	Catalogs CatalogPublisher

	BuildTool containertools.ContainerTool
	Mode      string
	SkipTLS   bool

	Logger *logrus.Entry
}

// Index is an index image built up one bundle at a time. Every bundle after
// the first is added on top of the index's own previous contents, and the
// image is pushed after each addition.
//
// An Index is not safe for concurrent use.
type Index struct {
	ref  string
	opts Options

	bundles     []*bundle.Bundle
	state       State
	seeded      bool
	catalogName string
}

func New(ref string, opts Options) (*Index, error) {
	if opts.Builder == nil || opts.Packager == nil || opts.Runner == nil {
		return nil, errors.New("an index needs a bundle builder, a packager and a container tool runner")
	}
	host, err := RegistryHost(ref)
	if err != nil {
		return nil, err
	}
	if opts.Auth != nil && opts.Auth.Registry == "" {
		opts.Auth.Registry = host
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	opts.Logger = opts.Logger.WithField("index", ref)

	return &Index{
		ref:  ref,
		opts: opts,
	}, nil
}

func (i *Index) Ref() string {
	return i.ref
}

func (i *Index) State() State {
	return i.state
}

// Bundles returns the bundles added so far, in the order they were added.
func (i *Index) Bundles() []*bundle.Bundle {
	return append([]*bundle.Bundle(nil), i.bundles...)
}

// CatalogName is the CatalogSource the index was last published as.
func (i *Index) CatalogName() string {
	return i.catalogName
}

// Pull fetches the existing index image so that the next bundle is added on
// top of it rather than to a fresh index.
func (i *Index) Pull() error {
	if err := i.opts.Runner.Pull(i.ref); err != nil {
		return err
	}
	i.seeded = true
	return nil
}

// AddBundle extracts image, adds it to the index and pushes the result.
func (i *Index) AddBundle(ctx context.Context, image string) (*bundle.Bundle, error) {
	b, err := i.opts.Builder.Build(image)
	if err != nil {
		return nil, err
	}

	request := AddToIndexRequest{
		Bundles:   []string{image},
		Tag:       i.ref,
		BuildTool: i.opts.BuildTool,
		Mode:      i.opts.Mode,
		SkipTLS:   i.opts.SkipTLS,
	}
	if len(i.bundles) > 0 || i.seeded {
		request.FromIndex = i.ref
	}

	i.opts.Logger.WithFields(logrus.Fields{
		"bundle":    image,
		"fromIndex": request.FromIndex,
	}).Info("adding bundle to index")
	if err := i.opts.Packager.AddToIndex(ctx, request); err != nil {
		return nil, fmt.Errorf("error adding %s to index %s: %w", image, i.ref, err)
	}
	i.bundles = append(i.bundles, b)
	i.state = Building

	if err := i.Push(); err != nil {
		return b, err
	}
	return b, nil
}

// AddBundles adds images in order and stops at the first failure.
func (i *Index) AddBundles(ctx context.Context, images ...string) ([]*bundle.Bundle, error) {
	added := make([]*bundle.Bundle, 0, len(images))
	for _, image := range images {
		b, err := i.AddBundle(ctx, image)
		if err != nil {
			return added, err
		}
		added = append(added, b)
	}
	return added, nil
}

// Push uploads the index image.
func (i *Index) Push() error {
	authFile, err := i.opts.Auth.ConfigPath()
	if err != nil {
		return err
	}
	if err := i.opts.Runner.Push(i.ref, authFile); err != nil {
		return fmt.Errorf("error pushing index %s: %w", i.ref, err)
	}
	i.state = Pushed
	i.opts.Logger.Info("pushed index")
	return nil
}

// PublishToCluster creates the CatalogSource catalogName serving this index
// and waits for it to come up.
func (i *Index) PublishToCluster(ctx context.Context, catalogName string) error {
	if i.state != Pushed {
		return fmt.Errorf("publishing %s as %s: %w", i.ref, catalogName, ErrNotPushed)
	}
	if i.opts.Catalogs == nil {
		return ErrNoPublisher
	}
	i.catalogName = catalogName
	return i.opts.Catalogs.Publish(ctx, i.ref, catalogName)
}

// RemoveFromCluster deletes the CatalogSource created by PublishToCluster.
func (i *Index) RemoveFromCluster(ctx context.Context) {
	if i.catalogName == "" || i.opts.Catalogs == nil {
		return
	}
	i.opts.Catalogs.Remove(ctx, i.catalogName)
}
