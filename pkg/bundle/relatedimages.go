package bundle

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/mcarlett/marketplace-utilities/pkg/containertools"
)

type inspectedImage struct {
	ID string `json:"Id"`
}

// VerifyRelatedImages checks that each expected image resolves to the same
// image ID as the CSV related image of the same name. When registryOverride is
// set, the registry host of every CSV image is replaced with it first. All
// mismatches are reported together.
func VerifyRelatedImages(runner containertools.CommandRunner, b *Bundle, expected map[string]string, registryOverride string) error {
	related, err := b.RelatedImages()
	if err != nil {
		return err
	}

	names := make([]string, 0, len(expected))
	for name := range expected {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		want := expected[name]
		got, ok := related[name]
		if !ok {
			errs = append(errs, fmt.Errorf("image %s was not found in csv %s, known names are %v", name, b.CSVName(), knownNames(related)))
			continue
		}
		if registryOverride != "" {
			got = overrideRegistry(got, registryOverride)
		}

		wantID, err := imageID(runner, want)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		gotID, err := imageID(runner, got)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if wantID != gotID {
			errs = append(errs, fmt.Errorf("expected image with name %q images %s and %s to have the same ids, got %s and %s", name, want, got, wantID, gotID))
		}
	}

	return utilerrors.NewAggregate(errs)
}

func imageID(runner containertools.CommandRunner, image string) (string, error) {
	if err := runner.Pull(image); err != nil {
		return "", fmt.Errorf("couldn't pull image %s: %w", image, err)
	}
	out, err := runner.Inspect(image)
	if err != nil {
		return "", err
	}

	var inspected []inspectedImage
	if err := json.Unmarshal(out, &inspected); err != nil {
		return "", fmt.Errorf("parsing %s inspect output for %s: %w", runner.GetToolName(), image, err)
	}
	if len(inspected) == 0 || inspected[0].ID == "" {
		return "", fmt.Errorf("%s inspect returned no id for %s", runner.GetToolName(), image)
	}
	return inspected[0].ID, nil
}

func overrideRegistry(image, registry string) string {
	_, rest, found := strings.Cut(image, "/")
	if !found {
		return image
	}
	return registry + "/" + rest
}

func knownNames(images map[string]string) []string {
	names := make([]string, 0, len(images))
	for name := range images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
