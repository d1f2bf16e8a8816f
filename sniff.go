// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"bytes"
)

// FileType describes the detected format of a byte buffer.
type FileType int

const (
	// FileTypeUnknown is reported for buffers that match no known magic bytes.
	FileTypeUnknown FileType = iota

	// FileTypeGzip is reported for gzip compressed streams.
	FileTypeGzip

	// FileTypeZip is reported for zip archives.
	FileTypeZip
)

// String returns the file extension associated with the file type.
func (f FileType) String() string {
	switch f {
	case FileTypeGzip:
		return fileExtensionGzip
	case FileTypeZip:
		return fileExtensionZip
	default:
		return "unknown"
	}
}

// Classify inspects the leading bytes of data and reports whether it is a
// gzip stream, a zip archive or neither. Buffers shorter than the magic
// bytes are classified as [FileTypeUnknown]. Classify never fails.
func Classify(data []byte) FileType {
	switch {
	case IsGzip(data):
		return FileTypeGzip
	case IsZip(data):
		return FileTypeZip
	default:
		return FileTypeUnknown
	}
}

// matchesMagicBytes checks if data contains one of the magic byte sequences
// at the given offset.
func matchesMagicBytes(data []byte, offset int, magicBytes [][]byte) bool {
	// check all possible magic bytes until match is found
	for _, mb := range magicBytes {
		// check if header is long enough
		if offset+len(mb) > len(data) {
			continue
		}

		// check for byte match
		if bytes.Equal(mb, data[offset:offset+len(mb)]) {
			return true
		}
	}

	// no match found
	return false
}
