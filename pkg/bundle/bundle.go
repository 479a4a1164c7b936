package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blang/semver/v4"
	operatorsv1alpha1 "github.com/operator-framework/api/pkg/operators/v1alpha1"
	"github.com/spf13/afero"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/yaml"
	sigsyaml "sigs.k8s.io/yaml"
)

const (
	csvMarker = "clusterserviceversion.yaml"
	crdMarker = "crd.yaml"
)

// Bundle is the metadata extracted from one operator bundle image. It is
// never modified after construction.
type Bundle struct {
	image       string
	annotations Annotations
	csv         *unstructured.Unstructured
	crds        []string
}

// New assembles a Bundle from already parsed parts.
func New(image string, annotations Annotations, csv *unstructured.Unstructured, crds []string) *Bundle {
	a := make(Annotations, len(annotations))
	for k, v := range annotations {
		a[k] = v
	}
	return &Bundle{
		image:       image,
		annotations: a,
		csv:         csv.DeepCopy(),
		crds:        append([]string(nil), crds...),
	}
}

// Load reads the bundle found under root, which must hold the flattened
// filesystem of the image.
func Load(fs afero.Fs, root, image string) (*Bundle, error) {
	annotationsPath := filepath.Join(root, MetadataDir, AnnotationsFile)
	raw, err := afero.ReadFile(fs, annotationsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("bundle %s: %w at %s", image, ErrMissingAnnotations, annotationsPath)
	}
	if err != nil {
		return nil, fmt.Errorf("bundle %s: reading %s: %w", image, annotationsPath, err)
	}

	var doc AnnotationsDocument
	if err := sigsyaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("bundle %s: %w: parsing %s: %v", image, ErrMalformedBundle, annotationsPath, err)
	}
	if err := doc.Annotations.Validate(); err != nil {
		return nil, fmt.Errorf("bundle %s: %w: %s: %w", image, ErrMalformedBundle, annotationsPath, err)
	}

	for _, dir := range []string{doc.Annotations.ManifestsDir(), doc.Annotations.MetadataDir()} {
		if !insideRoot(root, dir) {
			return nil, fmt.Errorf("bundle %s: %w: directory %q is outside the bundle", image, ErrMalformedBundle, dir)
		}
	}
	manifestsDir := filepath.Join(root, filepath.FromSlash(doc.Annotations.ManifestsDir()))
	entries, err := afero.ReadDir(fs, manifestsDir)
	if err != nil {
		return nil, fmt.Errorf("bundle %s: reading manifests directory %s: %w", image, manifestsDir, err)
	}

	var (
		csvFiles []string
		crds     []string
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		path := filepath.Join(manifestsDir, name)
		switch {
		case strings.Contains(name, csvMarker):
			csvFiles = append(csvFiles, path)
		case strings.Contains(name, crdMarker):
			content, err := afero.ReadFile(fs, path)
			if err != nil {
				return nil, fmt.Errorf("bundle %s: reading %s: %w", image, path, err)
			}
			crds = append(crds, string(content))
		}
	}

	switch len(csvFiles) {
	case 0:
		return nil, fmt.Errorf("bundle %s: %w in %s", image, ErrMissingCSV, manifestsDir)
	case 1:
	default:
		return nil, fmt.Errorf("bundle %s: %w in %s: %s", image, ErrAmbiguousCSV, manifestsDir, strings.Join(csvFiles, ", "))
	}

	content, err := afero.ReadFile(fs, csvFiles[0])
	if err != nil {
		return nil, fmt.Errorf("bundle %s: reading %s: %w", image, csvFiles[0], err)
	}
	csv := &unstructured.Unstructured{}
	if err := yaml.NewYAMLOrJSONDecoder(bytes.NewReader(content), 1).Decode(csv); err != nil {
		return nil, fmt.Errorf("bundle %s: %w: parsing %s: %v", image, ErrMalformedBundle, csvFiles[0], err)
	}

	return &Bundle{
		image:       image,
		annotations: doc.Annotations,
		csv:         csv,
		crds:        crds,
	}, nil
}

func (b *Bundle) Image() string {
	return b.image
}

// Annotations returns a copy of the bundle labels.
func (b *Bundle) Annotations() Annotations {
	a := make(Annotations, len(b.annotations))
	for k, v := range b.annotations {
		a[k] = v
	}
	return a
}

func (b *Bundle) PackageName() string {
	return b.annotations.PackageName()
}

func (b *Bundle) Channels() []string {
	return b.annotations.Channels()
}

func (b *Bundle) DefaultChannel() string {
	return b.annotations.DefaultChannel()
}

func (b *Bundle) MediaType() string {
	return b.annotations.MediaType()
}

// CSV returns a copy of the ClusterServiceVersion document.
func (b *Bundle) CSV() *unstructured.Unstructured {
	return b.csv.DeepCopy()
}

// CSVName is the CSV resource name, which OLM uses as the starting CSV and as
// the upgrade edge identifier.
func (b *Bundle) CSVName() string {
	return b.csv.GetName()
}

// CRDs returns the raw text of every CRD manifest shipped with the bundle.
func (b *Bundle) CRDs() []string {
	return append([]string(nil), b.crds...)
}

// Field looks up a nested field of the CSV document.
func (b *Bundle) Field(path ...string) (interface{}, bool, error) {
	return unstructured.NestedFieldCopy(b.csv.Object, path...)
}

// ClusterServiceVersion converts the CSV document into its typed form.
func (b *Bundle) ClusterServiceVersion() (*operatorsv1alpha1.ClusterServiceVersion, error) {
	csv := &operatorsv1alpha1.ClusterServiceVersion{}
	if err := runtime.DefaultUnstructuredConverter.FromUnstructured(b.csv.Object, csv); err != nil {
		return nil, fmt.Errorf("bundle %s: %w: converting csv %s: %v", b.image, ErrMalformedBundle, b.CSVName(), err)
	}
	return csv, nil
}

// RelatedImages maps every related image name declared in the CSV to its
// image reference.
func (b *Bundle) RelatedImages() (map[string]string, error) {
	csv, err := b.ClusterServiceVersion()
	if err != nil {
		return nil, err
	}
	images := make(map[string]string, len(csv.Spec.RelatedImages))
	for _, ri := range csv.Spec.RelatedImages {
		images[ri.Name] = ri.Image
	}
	return images, nil
}

// Version returns the operator version declared in the CSV.
func (b *Bundle) Version() (semver.Version, error) {
	v, found, err := unstructured.NestedString(b.csv.Object, "spec", "version")
	if err != nil {
		return semver.Version{}, fmt.Errorf("bundle %s: %w: %v", b.image, ErrMalformedBundle, err)
	}
	if !found {
		return semver.Version{}, fmt.Errorf("bundle %s: csv %s declares no version", b.image, b.CSVName())
	}
	return semver.ParseTolerant(v)
}

func insideRoot(root, dir string) bool {
	rel, err := filepath.Rel(root, filepath.Join(root, filepath.FromSlash(dir)))
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
