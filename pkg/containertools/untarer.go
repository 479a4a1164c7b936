package containertools

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	whiteoutPrefix = ".wh."
	whiteoutOpaque = whiteoutPrefix + whiteoutPrefix + ".opq"
)

// untarer can untar tar files.
type untarer struct {
	log *logrus.Entry
}

func newUntarer(logger *logrus.Entry) *untarer {
	return &untarer{
		log: logger,
	}
}

// Untar expands reader into path, merging with whatever is already there.
// It returns the absolute paths of the regular files it wrote, in archive order.
func (u *untarer) Untar(ctx context.Context, reader *tar.Reader, path string) ([]string, error) {
	var err error
	path, err = filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	u.log.Debugf("untarer writing to %s", path)

	var written []string
	// Paths this archive created, opaque whiteouts keep them.
	seen := map[string]struct{}{}
	for {
		header, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return written, err
		}

		select {
		case <-ctx.Done():
			return written, ctx.Err()
		default:
		}

		file, err := u.expandHeader(reader, header, path, seen)
		if err != nil {
			return written, err
		}
		if file != "" {
			written = append(written, file)
		}
	}

	u.log.Debugf("untarer extracted %d files", len(written))
	return written, nil
}

func (u *untarer) expandHeader(reader *tar.Reader, header *tar.Header, base string, seen map[string]struct{}) (string, error) {
	// Determine proper file path info
	info := header.FileInfo()
	path := filepath.Join(base, header.Name)
	if !within(base, path) {
		return "", fmt.Errorf("archive entry %q escapes destination %s", header.Name, base)
	}

	dir, name := filepath.Split(path)
	dir = filepath.Clean(dir)
	if name == whiteoutOpaque {
		return "", u.clearOpaque(dir, base, seen)
	}
	if strings.HasPrefix(name, whiteoutPrefix) {
		target := strings.TrimPrefix(name, whiteoutPrefix)
		removed := filepath.Join(dir, target)
		if target == "" || target == "." || target == ".." || removed == base || !within(base, removed) {
			return "", fmt.Errorf("archive whiteout %q escapes destination %s", header.Name, base)
		}
		u.log.Debugf("whiteout removes %s", removed)
		return "", os.RemoveAll(removed)
	}
	markSeen(seen, base, path)

	switch header.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(path, os.ModePerm); err != nil {
			u.log.Debugf("creating %s dir", path)
			return "", err
		}
		return "", nil
	case tar.TypeReg:
	default:
		u.log.Debugf("skipping %s: unsupported entry type %q", header.Name, header.Typeflag)
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return "", err
	}
	// A lower layer may have left a read-only file behind.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", err
	}

	// Create new file with custom file permissions
	file, err := os.OpenFile(
		path,
		os.O_RDWR|os.O_CREATE|os.O_TRUNC,
		os.ModePerm,
	)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := file.Close(); err != nil {
			u.log.Warnf("error closing file at %s: %s", path, err)
		}
	}()

	u.log.Debugf("untarer writing %s to disk", path)
	n, err := io.Copy(file, reader)
	if err != nil {
		return "", err
	}

	if n != info.Size() {
		return "", fmt.Errorf("unpacking to disk: wrote %d, want %d", n, info.Size())
	}

	return path, nil
}

// clearOpaque drops whatever lower layers left in dir. Entries the current
// archive wrote survive, whichever side of the marker they came from.
func (u *untarer) clearOpaque(dir, base string, seen map[string]struct{}) error {
	if dir == base {
		// Earlier layer archives of the export live at the root.
		u.log.Debugf("ignoring opaque whiteout at %s", dir)
		return nil
	}
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		p := filepath.Join(dir, e.Name())
		if _, ok := seen[p]; ok {
			continue
		}
		u.log.Debugf("opaque whiteout removes %s", p)
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return nil
}

// markSeen records path and its parents up to base.
func markSeen(seen map[string]struct{}, base, path string) {
	for p := path; p != base && within(base, p); p = filepath.Dir(p) {
		seen[p] = struct{}{}
	}
}

func within(base, path string) bool {
	return path == base || strings.HasPrefix(path, base+string(os.PathSeparator))
}
