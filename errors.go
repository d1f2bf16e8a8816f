// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"errors"
)

var (
	// ErrInvalidData is returned when an archive or compressed stream is
	// structurally corrupt, e.g. wrong magic bytes, a bounds violation, a
	// missing end-of-central-directory record or an unparseable field.
	ErrInvalidData = errors.New("invalid data")

	// ErrTruncatedStream is returned when compressed data ends before the
	// expected amount of output has been produced.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrSizeMismatch is returned when the decompressed byte count differs
	// from the size declared in the archive metadata.
	ErrSizeMismatch = errors.New("size mismatch")

	// ErrUnsupportedCompressionMethod is returned for zip entries that are
	// neither stored (method 0) nor deflate-compressed (method 8).
	ErrUnsupportedCompressionMethod = errors.New("unsupported compression method")

	// ErrEmptyOrInvalidStream is returned when gzip decompression produced
	// zero bytes. A zero-length result is indistinguishable from a
	// misidentified input and is treated as an error.
	ErrEmptyOrInvalidStream = errors.New("empty or invalid stream")

	// ErrMaxInputSizeExceeded is returned when the input exceeds the
	// configured maximum input size.
	ErrMaxInputSizeExceeded = errors.New("maximum input size exceeded")

	// ErrMaxExtractionSizeExceeded is returned when the extracted content
	// exceeds the configured maximum extraction size.
	ErrMaxExtractionSizeExceeded = errors.New("maximum extraction size exceeded")

	// ErrMaxFilesExceeded is returned when an archive contains more entries
	// than the configured maximum.
	ErrMaxFilesExceeded = errors.New("maximum files exceeded")

	// ErrEnvironment is returned when a required environment variable is
	// missing or fails validation.
	ErrEnvironment = errors.New("environment validation failed")

	// ErrHTTPRequest is returned when an HTTP request fails after all
	// retries, or the server answers with a non-success status.
	ErrHTTPRequest = errors.New("http request failed")

	// ErrCurseForgeAPI is returned when the CurseForge API answers with an
	// unexpected or empty payload.
	ErrCurseForgeAPI = errors.New("curseforge api error")

	// ErrVersionNotFound is returned when no server distribution could be
	// located for the requested Minecraft version.
	ErrVersionNotFound = errors.New("version not found")

	// ErrInvalidModpackFormat is returned when a downloaded modpack is
	// neither a zip archive nor a gzip stream wrapping one.
	ErrInvalidModpackFormat = errors.New("invalid modpack format")

	// ErrChecksumMismatch is returned when a downloaded file does not match
	// the digest published for it.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)
