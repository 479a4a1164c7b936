package bundle

import (
	"fmt"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
)

const (
	MetadataDir     = "metadata"
	AnnotationsFile = "annotations.yaml"

	PackageLabel        = "operators.operatorframework.io.bundle.package.v1"
	ChannelsLabel       = "operators.operatorframework.io.bundle.channels.v1"
	ChannelDefaultLabel = "operators.operatorframework.io.bundle.channel.default.v1"
	MediatypeLabel      = "operators.operatorframework.io.bundle.mediatype.v1"
	ManifestsLabel      = "operators.operatorframework.io.bundle.manifests.v1"
	MetadataLabel       = "operators.operatorframework.io.bundle.metadata.v1"
)

// requiredLabels must be present, with a non empty value, on every bundle.
var requiredLabels = []string{
	PackageLabel,
	ChannelsLabel,
	MediatypeLabel,
	ManifestsLabel,
	MetadataLabel,
}

// AnnotationsDocument is the layout of metadata/annotations.yaml.
type AnnotationsDocument struct {
	Annotations Annotations `json:"annotations"`
}

// Annotations holds the bundle format labels of a bundle image.
type Annotations map[string]string

// PackageName returns the name of the package the bundle belongs to
func (a Annotations) PackageName() string {
	return a[PackageLabel]
}

// Channels returns the channels that this bundle should be added to, in the
// order they were declared.
func (a Annotations) Channels() []string {
	var channels []string
	for _, c := range strings.Split(a[ChannelsLabel], ",") {
		if c = strings.TrimSpace(c); c != "" {
			channels = append(channels, c)
		}
	}
	return channels
}

// DefaultChannel returns the declared default channel, or the first channel
// when the bundle does not declare one.
func (a Annotations) DefaultChannel() string {
	if def := strings.TrimSpace(a[ChannelDefaultLabel]); def != "" {
		return def
	}
	if channels := a.Channels(); len(channels) > 0 {
		return channels[0]
	}
	return ""
}

func (a Annotations) MediaType() string {
	return a[MediatypeLabel]
}

func (a Annotations) ManifestsDir() string {
	return a[ManifestsLabel]
}

func (a Annotations) MetadataDir() string {
	return a[MetadataLabel]
}

// Validate reports every missing required label and every channel
// inconsistency at once.
func (a Annotations) Validate() error {
	var errs []error
	for _, label := range requiredLabels {
		if strings.TrimSpace(a[label]) == "" {
			errs = append(errs, fmt.Errorf("missing annotation %q", label))
		}
	}

	channels := a.Channels()
	if a[ChannelsLabel] != "" && len(channels) == 0 {
		errs = append(errs, fmt.Errorf("annotation %q lists no channels", ChannelsLabel))
	}
	if def := strings.TrimSpace(a[ChannelDefaultLabel]); def != "" && len(channels) > 0 {
		found := false
		for _, c := range channels {
			if c == def {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf("default channel %q is not one of the bundle channels %v", def, channels))
		}
	}

	return utilerrors.NewAggregate(errs)
}
