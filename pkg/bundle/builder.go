package bundle

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/mcarlett/marketplace-utilities/pkg/containertools"
)

const scratchDirPrefix = "bundle-"

// Builder turns bundle image references into Bundles by pulling, exporting and
// flattening each image.
type Builder struct {
	reader containertools.ImageReader
	fs     afero.Fs
	logger *logrus.Entry

	// WorkDir is the parent of the scratch directories, the system temp dir
	// when empty.
	WorkDir string
	// KeepWorkDir leaves the extracted filesystem on disk after Build.
	KeepWorkDir bool
}

func NewBuilder(reader containertools.ImageReader, logger *logrus.Entry) *Builder {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Builder{
		reader: reader,
		fs:     afero.NewOsFs(),
		logger: logger,
	}
}

// Build extracts image into a fresh scratch directory and loads its metadata.
func (b *Builder) Build(image string) (*Bundle, error) {
	dir, err := afero.TempDir(b.fs, b.WorkDir, scratchDirPrefix)
	if err != nil {
		return nil, err
	}
	if b.KeepWorkDir {
		b.logger.Infof("extracting bundle %s into %s", image, dir)
	} else {
		defer func() {
			if err := b.fs.RemoveAll(dir); err != nil {
				b.logger.Warnf("error removing %s: %v", dir, err)
			}
		}()
	}

	if err := b.reader.GetImageData(image, dir); err != nil {
		return nil, fmt.Errorf("extracting bundle %s: %w", image, err)
	}

	bundle, err := Load(b.fs, dir, image)
	if err != nil {
		return nil, err
	}
	b.logger.WithFields(logrus.Fields{
		"package": bundle.PackageName(),
		"csv":     bundle.CSVName(),
	}).Debugf("loaded bundle %s", image)

	return bundle, nil
}
