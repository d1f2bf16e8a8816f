// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build unix

package mcbootstrap

import (
	"golang.org/x/sys/unix"
)

// optimalBlockSize returns the preferred I/O block size of the filesystem
// holding path. It falls back to [defaultBlockSize] when the filesystem
// cannot be queried or reports a nonsensical value.
func optimalBlockSize(path string) int {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return defaultBlockSize
	}
	if st.Bsize <= 0 || st.Bsize > maxBlockSize {
		return defaultBlockSize
	}
	return int(st.Bsize)
}
