// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// InflateRaw decodes a headerless deflate stream into a buffer of exactly
// expectedSize bytes. The declared size is authoritative: decoding stops
// once expectedSize bytes have been produced and any unconsumed compressed
// bytes (checksums, trailers) are ignored. If the stream ends early the
// function fails with [ErrTruncatedStream], if the bitstream is corrupt it
// fails with [ErrInvalidData]. An expectedSize of zero returns an empty
// slice without touching the decoder. On failure no partial output is
// returned.
func InflateRaw(data []byte, expectedSize int) ([]byte, error) {
	if expectedSize < 0 {
		return nil, fmt.Errorf("negative output size %d: %w", expectedSize, ErrInvalidData)
	}

	// defined special case, avoids decoder edge cases on empty entries
	if expectedSize == 0 {
		return []byte{}, nil
	}

	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()

	out := make([]byte, expectedSize)
	n, err := io.ReadFull(fr, out)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("deflate stream ended after %d of %d bytes: %w", n, expectedSize, ErrTruncatedStream)
		}
		return nil, mapInflateError(err)
	}
	return out, nil
}

// mapInflateError converts decoder errors into the error taxonomy of this
// package. Corrupt bitstream reports become [ErrInvalidData], unexpected
// stream ends become [ErrTruncatedStream].
func mapInflateError(err error) error {
	var corrupt flate.CorruptInputError
	if errors.As(err, &corrupt) {
		return fmt.Errorf("corrupt deflate stream at offset %d: %w", int64(corrupt), ErrInvalidData)
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("deflate stream cut off: %w", ErrTruncatedStream)
	}
	return fmt.Errorf("inflate: %w", err)
}
