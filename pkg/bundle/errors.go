package bundle

import "errors"

var (
	// ErrMissingAnnotations is returned when metadata/annotations.yaml is absent.
	ErrMissingAnnotations = errors.New("bundle annotations not found")
	// ErrMissingCSV is returned when no clusterserviceversion file exists in the manifests directory.
	ErrMissingCSV = errors.New("bundle has no ClusterServiceVersion")
	// ErrAmbiguousCSV is returned when the manifests directory holds more than one clusterserviceversion file.
	ErrAmbiguousCSV = errors.New("bundle has more than one ClusterServiceVersion")
	// ErrMalformedBundle covers unparsable documents and invalid annotations.
	ErrMalformedBundle = errors.New("malformed bundle")
)
