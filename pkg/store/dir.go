package store

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/glorpus-work/pindex/pkg/errors"
	"github.com/glorpus-work/pindex/pkg/fsutil"
	"github.com/glorpus-work/pindex/pkg/logger"
	"github.com/glorpus-work/pindex/pkg/model"
)

// Dir serves artifact files from a directory tree. It is the default
// Storage implementation. Enumeration is best effort: entries that vanish
// or fail to stat mid-walk are skipped, never fatal for the whole scan.
type Dir struct {
	root      string
	recursive bool
}

// NewDir creates a Dir rooted at root. With recursive set, subdirectories
// are scanned too; files are still identified by their base filename.
func NewDir(root string, recursive bool) *Dir {
	return &Dir{root: root, recursive: recursive}
}

// Root returns the storage root directory.
func (d *Dir) Root() string { return d.root }

// List enumerates the artifact files under the root. Dotfiles are skipped;
// in recursive mode a base-filename collision keeps the lexically last
// path, matching the catalog's last-write-wins policy.
func (d *Dir) List(ctx context.Context) ([]model.FileInfo, error) {
	if fi, err := os.Stat(d.root); err != nil {
		return nil, errors.Wrapf(errors.ErrStorageRoot, "%s: %v", d.root, err)
	} else if !fi.IsDir() {
		return nil, errors.Wrapf(errors.ErrStorageRoot, "%s is not a directory", d.root)
	}

	byName := make(map[string]model.FileInfo)
	err := filepath.WalkDir(d.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				logger.Debug("entry vanished during scan", logrus.Fields{"path": path})
				return nil
			}
			logger.Warn("skipping unreadable entry", logrus.Fields{"path": path, "error": walkErr})
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if path != d.root && !d.recursive {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(entry.Name(), ".") {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			if os.IsNotExist(err) {
				logger.Debug("entry vanished during scan", logrus.Fields{"path": path})
			} else {
				logger.Warn("skipping unreadable entry", logrus.Fields{"path": path, "error": err})
			}
			return nil
		}

		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			return nil
		}
		name := entry.Name()
		if prev, ok := byName[name]; ok {
			logger.Warn("duplicate filename in storage, keeping last", logrus.Fields{
				"filename": name, "dropped": prev.Path, "kept": filepath.ToSlash(rel),
			})
		}
		byName[name] = model.FileInfo{
			Name:    name,
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "storage scan aborted")
	}

	files := make([]model.FileInfo, 0, len(byName))
	for _, fi := range byName {
		files = append(files, fi)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Stat resolves a single filename. It tries the root directly and, in
// recursive mode, falls back to searching the tree for the base name.
func (d *Dir) Stat(ctx context.Context, filename string) (model.FileInfo, error) {
	path, err := fsutil.SafeJoin(d.root, filename)
	if err != nil {
		return model.FileInfo{}, errors.Wrap(errors.ErrInvalidPath, err.Error())
	}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return model.FileInfo{
			Name:    filepath.Base(filename),
			Path:    filepath.ToSlash(filename),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}, nil
	}

	if d.recursive {
		files, err := d.List(ctx)
		if err != nil {
			return model.FileInfo{}, err
		}
		for _, fi := range files {
			if fi.Name == filepath.Base(filename) {
				return fi, nil
			}
		}
	}
	return model.FileInfo{}, errors.Wrapf(errors.ErrFileNotFound, "%s", filename)
}

// Open opens the file behind a storage-root-relative path for reading.
func (d *Dir) Open(relPath string) (*os.File, string, error) {
	path, err := fsutil.SafeJoin(d.root, relPath)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrInvalidPath, err.Error())
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", errors.Wrapf(errors.ErrFileNotFound, "%s", relPath)
		}
		return nil, "", errors.Wrapf(err, "failed to open %s", relPath)
	}
	return f, path, nil
}

// Exists reports whether filename is already present at the root.
func (d *Dir) Exists(filename string) bool {
	path, err := fsutil.SafeJoin(d.root, filename)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Write stores an uploaded file at the root under filename, atomically.
func (d *Dir) Write(filename string, r io.Reader) (model.FileInfo, error) {
	path, err := fsutil.SafeJoin(d.root, filename)
	if err != nil {
		return model.FileInfo{}, errors.Wrap(errors.ErrInvalidPath, err.Error())
	}
	if _, err := fsutil.AtomicWrite(path, r); err != nil {
		return model.FileInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return model.FileInfo{}, errors.Wrapf(err, "failed to stat %s after write", filename)
	}
	return model.FileInfo{
		Name:    filename,
		Path:    filepath.ToSlash(filename),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Remove deletes the file behind a storage-root-relative path.
func (d *Dir) Remove(relPath string) error {
	path, err := fsutil.SafeJoin(d.root, relPath)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidPath, err.Error())
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(errors.ErrFileNotFound, "%s", relPath)
		}
		return errors.Wrapf(err, "failed to remove %s", relPath)
	}
	return nil
}
