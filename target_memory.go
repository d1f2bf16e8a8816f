// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path"
	"path/filepath"
	"sort"
	"time"
)

// TargetMemory materializes extracted contents in memory instead of on the
// filesystem. It is mainly used in tests and when extracted contents are
// inspected before they are persisted.
type TargetMemory struct {
	entries map[string]*memoryEntry
}

// NewTargetMemory creates a new TargetMemory
func NewTargetMemory() *TargetMemory {
	return &TargetMemory{
		entries: map[string]*memoryEntry{},
	}
}

// memoryEntry is a single file or directory held by [TargetMemory].
type memoryEntry struct {
	name    string
	mode    fs.FileMode
	modTime time.Time
	content []byte
}

// normalizeName canonicalizes p to a slash separated relative name. The
// empty string and "." both address the implicit root directory.
func normalizeName(p string) string {
	p = path.Clean(filepath.ToSlash(p))
	if p == "/" || p == "" {
		return "."
	}
	return p
}

// CreateFile creates a file at the specified path with src as content. If
// the file already exists and overwrite is false, an error is returned.
// The size of the content is limited to maxSize, a value below 0 disables
// the limit. CreateFile returns the number of bytes written.
func (t *TargetMemory) CreateFile(path string, src io.Reader, mode fs.FileMode, overwrite bool, maxSize int64) (int64, error) {
	name := normalizeName(path)
	if e, ok := t.entries[name]; ok {
		if e.mode.IsDir() {
			return 0, fmt.Errorf("path is a directory: %s", path)
		}
		if !overwrite {
			return 0, fmt.Errorf("file already exists: %s", path)
		}
	}

	var buf bytes.Buffer
	n, err := io.Copy(limitWriter(&buf, maxSize), src)
	if err != nil {
		return n, fmt.Errorf("failed to write file: %w", err)
	}
	t.entries[name] = &memoryEntry{
		name:    name,
		mode:    mode.Perm(),
		modTime: now(),
		content: buf.Bytes(),
	}
	return n, nil
}

// CreateDir creates a directory at the specified path with the specified
// mode. If the directory already exists, nothing is done.
func (t *TargetMemory) CreateDir(path string, mode fs.FileMode) error {
	name := normalizeName(path)
	if e, ok := t.entries[name]; ok && !e.mode.IsDir() {
		return fmt.Errorf("path exists and is not a directory: %s", path)
	}
	t.entries[name] = &memoryEntry{
		name:    name,
		mode:    fs.ModeDir | mode.Perm(),
		modTime: now(),
	}
	return nil
}

// Lstat returns the FileInfo structure describing the named entry.
func (t *TargetMemory) Lstat(path string) (fs.FileInfo, error) {
	return t.Stat(path)
}

// Stat returns the FileInfo structure describing the named entry.
func (t *TargetMemory) Stat(path string) (fs.FileInfo, error) {
	name := normalizeName(path)
	if name == "." {
		return &memoryFileInfo{e: &memoryEntry{name: ".", mode: fs.ModeDir | 0755}}, nil
	}
	e, ok := t.entries[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return &memoryFileInfo{e: e}, nil
}

// Open opens the named entry for reading.
func (t *TargetMemory) Open(path string) (fs.File, error) {
	name := normalizeName(path)
	e, ok := t.entries[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return &memoryFile{e: e, r: bytes.NewReader(e.content)}, nil
}

// ReadFile returns the content of the named file.
func (t *TargetMemory) ReadFile(path string) ([]byte, error) {
	name := normalizeName(path)
	e, ok := t.entries[name]
	if !ok {
		return nil, &fs.PathError{Op: "readfile", Path: path, Err: fs.ErrNotExist}
	}
	if e.mode.IsDir() {
		return nil, &fs.PathError{Op: "readfile", Path: path, Err: fmt.Errorf("is a directory")}
	}
	return append([]byte(nil), e.content...), nil
}

// Names returns the sorted names of all entries.
func (t *TargetMemory) Names() []string {
	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// memoryFile adapts a memoryEntry to fs.File.
type memoryFile struct {
	e *memoryEntry
	r *bytes.Reader
}

func (f *memoryFile) Stat() (fs.FileInfo, error) { return &memoryFileInfo{e: f.e}, nil }
func (f *memoryFile) Read(p []byte) (int, error) { return f.r.Read(p) }
func (f *memoryFile) Close() error               { return nil }

// memoryFileInfo adapts a memoryEntry to fs.FileInfo.
type memoryFileInfo struct {
	e *memoryEntry
}

func (i *memoryFileInfo) Name() string       { return path.Base(i.e.name) }
func (i *memoryFileInfo) Size() int64        { return int64(len(i.e.content)) }
func (i *memoryFileInfo) Mode() fs.FileMode  { return i.e.mode }
func (i *memoryFileInfo) ModTime() time.Time { return i.e.modTime }
func (i *memoryFileInfo) IsDir() bool        { return i.e.mode.IsDir() }
func (i *memoryFileInfo) Sys() interface{}   { return nil }
