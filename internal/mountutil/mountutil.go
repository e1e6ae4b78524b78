// Package mountutil prepares a local directory for use as a FUSE
// mountpoint, kept separate so internal/fuse itself stays focused on the
// bazil.org/fuse adapter.
package mountutil

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Prepare ensures path is a valid, empty directory suitable for mounting.
// It creates the directory if missing and reports whether it did so, so
// the caller can remove it again after unmounting.
func Prepare(path string) (created bool, err error) {
	finfo, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(path, 0755); err != nil {
			return false, fmt.Errorf("mountutil: create mountpoint %s: %w", path, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("mountutil: stat mountpoint %s: %w", path, err)
	}
	if !finfo.IsDir() {
		return false, fmt.Errorf("mountutil: mountpoint %s is not a directory", path)
	}

	empty, err := IsDirEmpty(path)
	if err != nil {
		return false, fmt.Errorf("mountutil: check mountpoint %s: %w", path, err)
	}
	if !empty {
		return false, fmt.Errorf("mountutil: mountpoint %s is not empty", path)
	}
	return false, nil
}

// IsDirEmpty reports whether the directory at path has no entries.
func IsDirEmpty(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	entries, err := f.Readdir(1)
	if err != nil {
		if err == io.EOF {
			return true, nil
		}
		return false, err
	}
	return len(entries) == 0, nil
}
