// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// fileExtensionGzip is the file extension for gzip files.
const fileExtensionGzip = "gz"

// gzip container framing, see RFC 1952
const (
	gzipHeaderSize        = 10
	gzipTrailerSize       = 8
	gzipCompressionMethod = 8 // deflate, the only defined method

	// FLG bit fields
	gzipFlagText      = 1 << 0
	gzipFlagHeaderCRC = 1 << 1
	gzipFlagExtra     = 1 << 2
	gzipFlagName      = 1 << 3
	gzipFlagComment   = 1 << 4
	gzipFlagReserved  = 0xe0
)

// magicBytesGzip are the magic bytes for gzip compressed files.
var magicBytesGzip = [][]byte{
	{0x1f, 0x8b},
}

// IsGzip checks if data starts with the magic bytes for gzip compressed files.
func IsGzip(data []byte) bool {
	return matchesMagicBytes(data, 0, magicBytesGzip)
}

// InflateGzip decompresses a gzip stream held fully in memory and returns
// the decompressed bytes. The container framing is parsed field by field
// and the embedded deflate stream is decoded in a chunked loop, since the
// container does not declare a reliable uncompressed size up front. The
// output buffer starts at the input length and grows as needed.
//
// Malformed framing fails with [ErrInvalidData], a stream cut off
// mid-block fails with [ErrTruncatedStream] and a total output of zero
// bytes fails with [ErrEmptyOrInvalidStream]. The CRC32/ISIZE trailer is
// not validated.
func InflateGzip(data []byte) ([]byte, error) {
	payload, err := parseGzipHeader(data)
	if err != nil {
		return nil, err
	}

	fr := flate.NewReader(bytes.NewReader(payload))
	defer fr.Close()

	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	chunk := make([]byte, 32*1024)
	for {
		n, err := fr.Read(chunk)
		if n > 0 {
			out.Write(chunk[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, mapInflateError(err)
		}
	}

	if out.Len() == 0 {
		return nil, fmt.Errorf("gzip stream decompressed to nothing: %w", ErrEmptyOrInvalidStream)
	}
	return out.Bytes(), nil
}

// parseGzipHeader validates the gzip container framing and returns the
// embedded deflate stream. The trailer bytes stay attached to the returned
// slice, the deflate decoder leaves them unconsumed.
func parseGzipHeader(data []byte) ([]byte, error) {
	if !IsGzip(data) {
		return nil, fmt.Errorf("missing gzip magic bytes: %w", ErrInvalidData)
	}
	if len(data) < gzipHeaderSize {
		return nil, fmt.Errorf("gzip header requires %d bytes, got %d: %w", gzipHeaderSize, len(data), ErrInvalidData)
	}
	if cm := data[2]; cm != gzipCompressionMethod {
		return nil, fmt.Errorf("gzip compression method %d is not deflate: %w", cm, ErrInvalidData)
	}

	flg := data[3]
	if flg&gzipFlagReserved != 0 {
		return nil, fmt.Errorf("reserved gzip flag bits set (0x%02x): %w", flg, ErrInvalidData)
	}

	// skip MTIME (4), XFL (1) and OS (1), then the optional fields in the
	// order RFC 1952 defines them
	cur := newCursor(data)
	off := gzipHeaderSize

	if flg&gzipFlagExtra != 0 {
		xlen, err := cur.readLE16(off)
		if err != nil {
			return nil, err
		}
		off += 2 + xlen
		if off > len(data) {
			return nil, fmt.Errorf("gzip extra field of %d bytes exceeds buffer: %w", xlen, ErrInvalidData)
		}
	}
	if flg&gzipFlagName != 0 {
		end, err := skipZeroTerminated(data, off)
		if err != nil {
			return nil, fmt.Errorf("unterminated gzip file name: %w", err)
		}
		off = end
	}
	if flg&gzipFlagComment != 0 {
		end, err := skipZeroTerminated(data, off)
		if err != nil {
			return nil, fmt.Errorf("unterminated gzip comment: %w", err)
		}
		off = end
	}
	if flg&gzipFlagHeaderCRC != 0 {
		// present but not validated
		if _, err := cur.readLE16(off); err != nil {
			return nil, err
		}
		off += 2
	}

	return data[off:], nil
}

// skipZeroTerminated returns the offset just past the zero terminator of
// the field starting at off.
func skipZeroTerminated(data []byte, off int) (int, error) {
	if off > len(data) {
		return 0, ErrInvalidData
	}
	idx := bytes.IndexByte(data[off:], 0)
	if idx < 0 {
		return 0, ErrInvalidData
	}
	return off + idx + 1, nil
}

// DecompressGzip decompresses a gzip stream from src into a single file
// below dst. The output name is derived from the input name where src is a
// file, see determineOutputName. Telemetry data is collected during the
// decompression and submitted to the configured hook.
func DecompressGzip(ctx context.Context, t Target, dst string, src io.Reader, c *Config) error {
	td := &TelemetryData{ExtractedType: fileExtensionGzip}
	defer c.TelemetryHook()(ctx, td)
	defer captureExtractionDuration(td, now())

	data, err := readerToBytes(src, c)
	if err != nil {
		return recordError(td, "cannot read input", err)
	}
	td.InputSize = int64(len(data))

	return decompressGzipData(ctx, t, dst, src, data, c, td)
}

// decompressGzipData decompresses the in-memory gzip stream data into a
// single file below dst.
func decompressGzipData(ctx context.Context, t Target, dst string, src io.Reader, data []byte, c *Config, td *TelemetryData) error {
	c.Logger().Info("decompressing gzip", "size", len(data))

	out, err := InflateGzip(data)
	if err != nil {
		return recordError(td, "cannot decompress gzip", err)
	}

	if err := c.CheckExtractionSize(int64(len(out))); err != nil {
		return recordError(td, "extraction size check failed", err)
	}

	dir, name := determineOutputName(dst, src)
	c.Logger().Debug("determined output name", "name", name)

	n, err := createFile(t, dir, name, bytes.NewReader(out), c.CustomCreateFileMode(), -1, c)
	td.ExtractionSize = n
	if err != nil {
		return recordError(td, "cannot create file", err)
	}
	td.ExtractedFiles++
	return nil
}
