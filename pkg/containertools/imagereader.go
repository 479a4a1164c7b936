package containertools

import (
	"archive/tar"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/containerd/containerd/archive/compression"
	"github.com/h2non/filetype"
	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/sirupsen/logrus"
)

const (
	imageManifestName = "manifest.json"
	ociIndexName      = "index.json"
	layerArchiveName  = "layer.tar"
	rootArchiveName   = "bundle.tar"
	blobsDir          = "blobs"

	// filetype needs this many leading bytes to recognize a tar header.
	sniffLen = 262

	// nested image indexes followed before giving up
	maxIndexDepth = 4
)

// imageManifest is the object format of container image manifest files
// use this type to parse manifest.json files inside container image blobs
type imageManifest struct {
	Layers []string `json:"Layers"`
}

type ImageReader interface {
	GetImageData(string, string, ...GetImageDataOption) error
}

// ImageLayerReader rebuilds an image's flattened filesystem from the archive
// produced by the container tool's save command.
type ImageLayerReader struct {
	Cmd    CommandRunner
	Logger *logrus.Entry
}

func NewImageReader(containerTool ContainerTool, logger *logrus.Entry, opts ...RunnerOption) ImageReader {
	cmd := NewCommandRunner(containerTool, logger, opts...)

	return &ImageLayerReader{
		Cmd:    cmd,
		Logger: logger,
	}
}

// GetImageData pulls image, exports it and writes its flattened filesystem
// into outputDir.
func (b ImageLayerReader) GetImageData(image, outputDir string, opts ...GetImageDataOption) error {
	options := GetImageDataOptions{}
	for _, o := range opts {
		o(&options)
	}
	logger := b.Logger
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	// Create the output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0777); err != nil {
		return err
	}

	if err := b.Cmd.Pull(image); err != nil {
		return err
	}

	workingDir := options.WorkingDir
	if workingDir == "" {
		dir, err := os.MkdirTemp("", "bundle_staging_")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		workingDir = dir
	}
	rootTarfile := filepath.Join(workingDir, rootArchiveName)

	if err := b.Cmd.Save(image, rootTarfile); err != nil {
		return err
	}

	if err := FlattenArchive(context.TODO(), logger, rootTarfile, outputDir); err != nil {
		return fmt.Errorf("error flattening image %s: %w", image, err)
	}
	logger.Infof("unpacked image %s into %s", image, outputDir)

	return nil
}

// FlattenArchive extracts archivePath into dest and then keeps extracting every
// nested layer archive it produced, until no unprocessed archive is left.
//
// Archives are handled from an explicit queue instead of by recursion. Every
// queued layer is a file written by an earlier, strictly larger archive, and a
// path is never processed twice, so the loop terminates.
func FlattenArchive(ctx context.Context, logger *logrus.Entry, archivePath, dest string) error {
	dest, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dest, os.ModePerm); err != nil {
		return err
	}

	u := newUntarer(logger)
	processed := map[string]struct{}{}
	queue := []string{archivePath}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, ok := processed[next]; ok {
			continue
		}
		processed[next] = struct{}{}

		logger.Debugf("extracting archive %s", next)
		written, err := extractArchive(ctx, u, next, dest)
		if err != nil {
			return fmt.Errorf("error extracting %s: %w", next, err)
		}

		nested, err := nestedArchives(dest, written)
		if err != nil {
			return err
		}
		for _, n := range nested {
			if _, ok := processed[n]; !ok {
				queue = append(queue, n)
			}
		}
	}

	return nil
}

func extractArchive(ctx context.Context, u *untarer, archivePath, dest string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// Layers may be gzip or zstd compressed, plain tars pass through untouched.
	decompressed, err := compression.DecompressStream(f)
	if err != nil {
		return nil, err
	}
	defer decompressed.Close()

	return u.Untar(ctx, tar.NewReader(decompressed), dest)
}

// nestedArchives picks the layer archives among the files an archive wrote.
// Layers named by a manifest.json, or failing that by the image an OCI
// index.json points at, written in the same pass come first, in manifest
// order, so that upper layers overwrite lower ones.
func nestedArchives(dest string, written []string) ([]string, error) {
	var (
		ordered   []string
		candidate = map[string]bool{}
	)

	add := func(p string) {
		if !candidate[p] {
			candidate[p] = true
			ordered = append(ordered, p)
		}
	}

	manifestPath := filepath.Join(dest, imageManifestName)
	indexPath := filepath.Join(dest, ociIndexName)
	var hasManifest, hasIndex bool
	for _, w := range written {
		switch w {
		case manifestPath:
			hasManifest = true
		case indexPath:
			hasIndex = true
		}
	}

	if hasManifest {
		layers, err := manifestLayers(manifestPath)
		if err != nil {
			return nil, err
		}
		for _, l := range layers {
			add(filepath.Join(dest, filepath.FromSlash(l)))
		}
	}
	// Exports carrying both files list the same layers in both.
	if hasIndex && len(ordered) == 0 {
		layers, err := ociLayers(dest)
		if err != nil {
			return nil, err
		}
		for _, l := range layers {
			add(l)
		}
	}

	for _, w := range written {
		if candidate[w] {
			continue
		}
		isArchive, err := isLayerArchive(dest, w)
		if err != nil {
			return nil, err
		}
		if isArchive {
			candidate[w] = true
			ordered = append(ordered, w)
		}
	}

	// A manifest may reference layers that live in a later archive pass.
	var existing []string
	for _, p := range ordered {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	return existing, nil
}

// ociLayers resolves the layer blobs of the first image in the OCI layout
// rooted at dest, lowest layer first.
func ociLayers(dest string) ([]string, error) {
	b, err := os.ReadFile(filepath.Join(dest, ociIndexName))
	if err != nil {
		return nil, err
	}
	var index ocispec.Index
	if err := json.Unmarshal(b, &index); err != nil {
		// Not an image layout index, just a file that happens to share the name.
		return nil, nil
	}

	for depth := 0; depth < maxIndexDepth; depth++ {
		if len(index.Manifests) == 0 {
			return nil, nil
		}
		desc := index.Manifests[0]
		b, err := readBlob(dest, desc.Digest)
		if os.IsNotExist(err) {
			// The blobs come in a later archive pass, sniffing picks them up.
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if desc.MediaType == ocispec.MediaTypeImageIndex {
			index = ocispec.Index{}
			if err := json.Unmarshal(b, &index); err != nil {
				return nil, fmt.Errorf("error parsing image index %s: %w", desc.Digest, err)
			}
			continue
		}

		var manifest ocispec.Manifest
		if err := json.Unmarshal(b, &manifest); err != nil {
			return nil, fmt.Errorf("error parsing image manifest %s: %w", desc.Digest, err)
		}
		var layers []string
		for _, l := range manifest.Layers {
			p, err := blobPath(dest, l.Digest)
			if err != nil {
				return nil, err
			}
			layers = append(layers, p)
		}
		return layers, nil
	}
	return nil, fmt.Errorf("image indexes nested deeper than %d levels", maxIndexDepth)
}

func blobPath(dest string, d digest.Digest) (string, error) {
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("invalid blob digest %q: %w", d, err)
	}
	return filepath.Join(dest, blobsDir, d.Algorithm().String(), d.Encoded()), nil
}

func readBlob(dest string, d digest.Digest) ([]byte, error) {
	p, err := blobPath(dest, d)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func manifestLayers(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	manifests := make([]imageManifest, 0)
	if err := json.Unmarshal(b, &manifests); err != nil {
		// Not an image export manifest, just a file that happens to share the name.
		return nil, nil
	}
	if len(manifests) == 0 {
		return nil, nil
	}

	return manifests[0].Layers, nil
}

// isLayerArchive recognizes "*.tar" files (which covers the "layer.tar" docker
// variant) and, in the OCI layout variant, content addressed blobs that are tar
// streams, compressed or not.
func isLayerArchive(dest, path string) (bool, error) {
	if strings.HasSuffix(path, ".tar") || filepath.Base(path) == layerArchiveName {
		return true, nil
	}

	rel, err := filepath.Rel(dest, path)
	if err != nil {
		return false, err
	}
	if !strings.HasPrefix(rel, blobsDir+string(os.PathSeparator)) {
		return false, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	head = head[:n]

	return filetype.Is(head, "tar") || filetype.Is(head, "gz") || filetype.Is(head, "zst"), nil
}
