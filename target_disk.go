// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// TargetDisk is the struct type that holds all information for interacting
// with the filesystem
type TargetDisk struct{}

// NewTargetDisk creates a new TargetDisk
func NewTargetDisk() *TargetDisk {
	return &TargetDisk{}
}

// CreateDir creates a directory at the specified path with the specified
// mode. If the directory already exists, nothing is done.
func (d *TargetDisk) CreateDir(path string, mode fs.FileMode) error {
	if err := os.MkdirAll(path, mode.Perm()); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return nil
}

// CreateFile creates a file at the specified path with src as content.
// The content is written to a temporary file in the same directory first
// and moved into place afterwards, so a failed write never leaves a
// partial file at path. If the file already exists and overwrite is false,
// an error is returned. The size of the content is limited to maxSize, a
// value below 0 disables the limit. CreateFile returns the number of bytes
// written.
func (d *TargetDisk) CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	// Check for path validity and file existence+overwrite
	if _, err := os.Lstat(path); !os.IsNotExist(err) {

		// something wrong with path
		if err != nil {
			return 0, fmt.Errorf("invalid path: %w", err)
		}

		// check for overwrite
		if !overwrite {
			return 0, fmt.Errorf("file already exists: %s", path)
		}
	}

	// stage in the destination directory so the final rename stays on the
	// same filesystem
	tmpFile, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file: %w", err)
	}

	writer := limitWriter(tmpFile, maxSize)
	n, err := io.Copy(writer, src)
	if err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return n, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmpFile.Chmod(mode.Perm()); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return n, fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return n, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpFile.Name(), path); err != nil {
		os.Remove(tmpFile.Name())
		return n, fmt.Errorf("failed to move file in place: %w", err)
	}

	return n, nil
}

// Lstat returns the FileInfo structure describing the named file.
func (d *TargetDisk) Lstat(name string) (fs.FileInfo, error) {
	return os.Lstat(name)
}

// Stat returns the FileInfo structure describing the named file.
func (d *TargetDisk) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}
