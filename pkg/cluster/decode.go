package cluster

import (
	"bytes"
	"io"
	"strings"

	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/util/yaml"
)

func FromReader(reader io.Reader) (*unstructured.Unstructured, error) {
	decoder := yaml.NewYAMLOrJSONDecoder(reader, 1)

	unst := &unstructured.Unstructured{}
	err := decoder.Decode(unst)
	if err != nil {
		return nil, err
	}

	return unst, nil
}

func FromString(str string) (*unstructured.Unstructured, error) {
	return FromReader(strings.NewReader(str))
}

func FromBytes(b []byte) (*unstructured.Unstructured, error) {
	return FromReader(bytes.NewReader(b))
}
