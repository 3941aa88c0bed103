// Package fsutil provides small filesystem helpers shared by the storage
// layer and config handling.
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// File and directory permission constants, used consistently throughout the
// application.
const (
	FileModeDefault = 0o644 // -rw-r--r--: Default for regular files
	FileModeSecure  = 0o600 // -rw-------: For sensitive files
	DirModeDefault  = 0o755 // drwxr-xr-x: Default for directories
)

// EnsureDir creates dir (and parents) if it does not exist yet.
func EnsureDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("directory path cannot be empty")
	}
	if err := os.MkdirAll(dir, DirModeDefault); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// AtomicWrite streams r into dst without exposing partial content: the data
// lands in a temp file in the destination directory and is renamed into
// place. Rename within one directory is atomic on POSIX filesystems.
func AtomicWrite(dst string, r io.Reader) (int64, error) {
	dir := filepath.Dir(dst)
	if err := EnsureDir(dir); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(tmpPath, FileModeDefault)
	}
	if err == nil {
		err = os.Rename(tmpPath, dst)
	}
	if err != nil {
		_ = os.Remove(tmpPath)
		return n, fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return n, nil
}

// SafeJoin joins name onto root and rejects anything that would escape it.
func SafeJoin(root, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("name cannot be empty")
	}
	joined := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes storage root", name)
	}
	return joined, nil
}
