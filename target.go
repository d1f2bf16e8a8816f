// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Target specifies the functions that are needed to materialize extracted
// contents. Implementations exist for the local filesystem ([TargetDisk])
// and for memory ([TargetMemory]).
type Target interface {
	// CreateFile creates a file at the specified path with src as content. The
	// mode parameter is the file mode that is set on the file. If the file
	// already exists and overwrite is false, an error is returned. The size of
	// the file content is limited to maxSize, a value below 0 disables the
	// limit. CreateFile returns the number of bytes written.
	CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error)

	// CreateDir creates a directory at the specified path with the specified
	// mode. If the directory already exists, nothing is done.
	CreateDir(path string, mode fs.FileMode) error

	// Lstat see docs for os.Lstat.
	Lstat(path string) (fs.FileInfo, error)

	// Stat see docs for os.Stat.
	Stat(path string) (fs.FileInfo, error)
}

// createFile is a wrapper around the CreateFile function that joins dst and
// name and ensures the parent directory of the file exists.
//
// Entry names are taken from archives verbatim. There is no rejection of
// parent directory components or absolute names, an entry name containing
// such components is written outside of dst.
func createFile(t Target, dst string, name string, src io.Reader, mode fs.FileMode, maxSize int64, cfg *Config) (int64, error) {
	// check if a name is provided
	if len(name) == 0 {
		return 0, fmt.Errorf("cannot create file without name")
	}

	// adjust path to be os specific
	parts := strings.Split(name, "/")
	name = filepath.Join(parts...)

	// ensure the parent directory exists, an already existing directory is
	// not an error
	if dir := filepath.Dir(name); dir != "." {
		if err := t.CreateDir(filepath.Join(dst, dir), cfg.CustomCreateDirMode()); err != nil {
			return 0, fmt.Errorf("cannot create directory: %w", err)
		}
	}

	path := filepath.Join(dst, name)
	return t.CreateFile(path, src, mode, cfg.Overwrite(), maxSize)
}

// determineOutputName determines the output directory and file name for
// decompressed content. If dst names a non-existing path or an existing
// file, its base name is used. If src is a file, the compression suffix is
// stripped from its name, otherwise a generic name is used.
func determineOutputName(dst string, src io.Reader) (string, string) {
	if dst != "." && dst != "" {
		if stat, err := os.Stat(dst); err != nil || stat.Mode()&fs.ModeDir == 0 {
			return filepath.Dir(dst), filepath.Base(dst)
		}
	}

	if f, ok := src.(named); ok {
		name := filepath.Base(f.Name())
		newName := strings.TrimSuffix(name, filepath.Ext(name))
		if name != newName && newName != "" {
			return dst, newName
		}
		return dst, fmt.Sprintf("%s.decompressed", name)
	}
	return dst, "mcbootstrap-decompressed-content"
}

// named is implemented by inputs that carry a name, e.g. *os.File.
type named interface {
	Name() string
}
