// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCreateFile(t *testing.T) {
	cfg := NewConfig()

	t.Run("empty name", func(t *testing.T) {
		tm := NewTargetMemory()
		if _, err := createFile(tm, "dst", "", strings.NewReader("content"), 0644, -1, cfg); err == nil {
			t.Errorf("createFile() without name expected error, got nil")
		}
	})

	t.Run("plain name", func(t *testing.T) {
		tm := NewTargetMemory()
		if _, err := createFile(tm, "dst", "test", strings.NewReader("content"), 0644, -1, cfg); err != nil {
			t.Fatalf("createFile() failed: %s", err)
		}
		if _, err := tm.ReadFile(filepath.Join("dst", "test")); err != nil {
			t.Errorf("ReadFile() failed: %s", err)
		}
	})

	t.Run("nested name creates parents", func(t *testing.T) {
		tm := NewTargetMemory()
		if _, err := createFile(tm, "dst", "a/b/test", strings.NewReader("content"), 0644, -1, cfg); err != nil {
			t.Fatalf("createFile() failed: %s", err)
		}
		stat, err := tm.Stat(filepath.Join("dst", "a", "b"))
		if err != nil {
			t.Fatalf("Stat() on parent failed: %s", err)
		}
		if !stat.IsDir() {
			t.Errorf("parent is no directory")
		}
		if _, err := tm.ReadFile(filepath.Join("dst", "a", "b", "test")); err != nil {
			t.Errorf("ReadFile() failed: %s", err)
		}
	})
}

func TestDetermineOutputName(t *testing.T) {
	tmpDir := t.TempDir()

	namedFile := func(name string) io.Reader {
		t.Helper()
		f, err := os.Create(filepath.Join(tmpDir, name))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { f.Close() })
		return f
	}

	tests := []struct {
		name     string
		dst      string
		src      func() io.Reader
		wantDir  string
		wantName string
	}{
		{
			name:     "non existing destination names the file",
			dst:      filepath.Join(tmpDir, "out.bin"),
			src:      func() io.Reader { return bytes.NewReader(nil) },
			wantDir:  tmpDir,
			wantName: "out.bin",
		},
		{
			name:     "existing directory and named source",
			dst:      tmpDir,
			src:      func() io.Reader { return namedFile("data.gz") },
			wantDir:  tmpDir,
			wantName: "data",
		},
		{
			name:     "named source without extension",
			dst:      tmpDir,
			src:      func() io.Reader { return namedFile("archive") },
			wantDir:  tmpDir,
			wantName: "archive.decompressed",
		},
		{
			name:     "unnamed source",
			dst:      tmpDir,
			src:      func() io.Reader { return bytes.NewReader(nil) },
			wantDir:  tmpDir,
			wantName: "mcbootstrap-decompressed-content",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			dir, name := determineOutputName(test.dst, test.src())
			if dir != test.wantDir {
				t.Errorf("determineOutputName() dir = %q, want %q", dir, test.wantDir)
			}
			if name != test.wantName {
				t.Errorf("determineOutputName() name = %q, want %q", name, test.wantName)
			}
		})
	}
}
