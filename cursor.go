// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"encoding/binary"
	"fmt"
)

// cursor wraps a byte buffer with bounds-checked multi-byte accessors.
// All archive field reads go through the cursor, so the bounds invariant
// lives in one place instead of at every call site. Offsets are validated
// against the buffer on every read and a read past the end reports
// [ErrInvalidData] instead of panicking on untrusted input.
type cursor struct {
	data []byte
}

// newCursor returns a cursor over data. The cursor does not copy data.
func newCursor(data []byte) *cursor {
	return &cursor{data: data}
}

// size returns the length of the underlying buffer.
func (c *cursor) size() int {
	return len(c.data)
}

// readLE16 reads a little-endian uint16 at off and returns it as int.
func (c *cursor) readLE16(off int) (int, error) {
	if off < 0 || off+2 > len(c.data) {
		return 0, fmt.Errorf("read of 2 bytes at offset %d exceeds buffer of %d bytes: %w", off, len(c.data), ErrInvalidData)
	}
	return int(binary.LittleEndian.Uint16(c.data[off:])), nil
}

// readLE32 reads a little-endian uint32 at off.
func (c *cursor) readLE32(off int) (uint32, error) {
	if off < 0 || off+4 > len(c.data) {
		return 0, fmt.Errorf("read of 4 bytes at offset %d exceeds buffer of %d bytes: %w", off, len(c.data), ErrInvalidData)
	}
	return binary.LittleEndian.Uint32(c.data[off:]), nil
}

// bytesAt returns the n bytes starting at off as a sub-slice of the
// underlying buffer. The returned slice shares memory with the buffer.
func (c *cursor) bytesAt(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(c.data) {
		return nil, fmt.Errorf("read of %d bytes at offset %d exceeds buffer of %d bytes: %w", n, off, len(c.data), ErrInvalidData)
	}
	return c.data[off : off+n], nil
}
