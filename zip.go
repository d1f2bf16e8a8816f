// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// fileExtensionZip is the file extension for zip files.
const fileExtensionZip = "zip"

// zip structure constants, see APPNOTE.TXT
const (
	zipEOCDSignature        = 0x06054b50
	zipCentralDirSignature  = 0x02014b50
	zipLocalHeaderSignature = 0x04034b50

	zipEOCDMinSize          = 22
	zipCentralDirHeaderSize = 46
	zipLocalHeaderSize      = 30

	zipMethodStored  = 0
	zipMethodDeflate = 8
)

// magicBytesZip contains the magic bytes for a zip archive. Matching on
// the two-byte "PK" prefix covers regular, empty and spanned archives.
var magicBytesZip = [][]byte{
	{0x50, 0x4b},
}

// IsZip checks if data is a zip archive.
func IsZip(data []byte) bool {
	return matchesMagicBytes(data, 0, magicBytesZip)
}

// UnpackZip reads a zip archive from src and extracts every regular file
// entry below dst. The archive is materialized in memory before parsing,
// capped by the configured maximum input size. Telemetry data is collected
// during the extraction and submitted to the configured hook.
//
// The central directory supplies entry names and local header offsets, the
// local file header is the authoritative source for compression method and
// sizes. Entry names are joined onto dst without path sanitization, names
// with parent directory components escape the destination. Callers must
// only extract archives from sources they trust.
func UnpackZip(ctx context.Context, t Target, dst string, src io.Reader, c *Config) error {
	td := &TelemetryData{ExtractedType: fileExtensionZip}
	defer c.TelemetryHook()(ctx, td)
	defer captureExtractionDuration(td, now())

	data, err := readerToBytes(src, c)
	if err != nil {
		return recordError(td, "cannot read input", err)
	}
	td.InputSize = int64(len(data))

	return extractAll(ctx, t, dst, data, c, td)
}

// extractAll parses the zip archive held in data and extracts its entries
// below dst. Structural failures before and during locating the central
// directory abort the call. Failures of single entries are subject to the
// continue-on-error policy of the configuration, files written before such
// a failure are not rolled back.
func extractAll(ctx context.Context, t Target, dst string, data []byte, c *Config, td *TelemetryData) error {
	c.Logger().Info("extracting zip", "size", len(data))

	if ft := Classify(data); ft != FileTypeZip {
		return recordError(td, "cannot extract zip", fmt.Errorf("data classified as %s: %w", ft, ErrInvalidData))
	}
	if len(data) < zipEOCDMinSize {
		return recordError(td, "cannot extract zip", fmt.Errorf("%d bytes is below the minimum archive size of %d: %w", len(data), zipEOCDMinSize, ErrInvalidData))
	}

	cur := newCursor(data)
	eocd, err := locateEOCD(cur)
	if err != nil {
		return recordError(td, "cannot locate end of central directory", err)
	}

	cdSize, err := cur.readLE32(eocd + 12)
	if err != nil {
		return recordError(td, "cannot read central directory size", err)
	}
	cdOffset, err := cur.readLE32(eocd + 16)
	if err != nil {
		return recordError(td, "cannot read central directory offset", err)
	}
	if int64(cdOffset) >= int64(len(data)) || int64(cdOffset)+int64(cdSize) > int64(len(data)) {
		return recordError(td, "cannot extract zip",
			fmt.Errorf("central directory at %d with %d bytes exceeds archive of %d bytes: %w", cdOffset, cdSize, len(data), ErrInvalidData))
	}

	// check if dst needs to be created
	if c.CreateDestination() {
		if err := t.CreateDir(dst, c.CustomCreateDirMode()); err != nil {
			return recordError(td, "cannot create destination", err)
		}
	}
	if _, err := t.Lstat(dst); err != nil {
		return recordError(td, "destination does not exist", err)
	}

	// walk the central directory
	off := int(cdOffset)
	end := int(cdOffset) + int(cdSize)
	var entryCounter int64
	for {
		// check if context is canceled
		if err := ctx.Err(); err != nil {
			return err
		}

		// a truncated directory, a foreign signature or a name running past
		// the buffer all terminate the walk instead of failing it
		if end-off < zipCentralDirHeaderSize {
			return nil
		}
		sig, err := cur.readLE32(off)
		if err != nil || sig != zipCentralDirSignature {
			return nil
		}

		nameLen, err := cur.readLE16(off + 28)
		if err != nil {
			return nil
		}
		extraLen, err := cur.readLE16(off + 30)
		if err != nil {
			return nil
		}
		commentLen, err := cur.readLE16(off + 32)
		if err != nil {
			return nil
		}
		localOffset, err := cur.readLE32(off + 42)
		if err != nil {
			return nil
		}
		nameBytes, err := cur.bytesAt(off+zipCentralDirHeaderSize, nameLen)
		if err != nil {
			return nil
		}
		name := string(nameBytes)

		entryCounter++
		if err := c.CheckMaxFiles(entryCounter); err != nil {
			return handleError(c, td, "max files check failed", err)
		}

		switch {

		// entries with a trailing separator denote directories, their
		// materialization is implied by the parent creation of the files
		// below them
		case nameLen > 0 && strings.HasSuffix(name, "/"):
			c.Logger().Debug("skipping directory entry", "name", name)
			td.SkippedDirEntries++

		default:
			err := extractOne(t, dst, data, int64(localOffset), name, c, td)
			switch {
			case err == nil:

			case errors.Is(err, ErrUnsupportedCompressionMethod) && c.ContinueOnUnsupportedFiles():
				c.Logger().Info("skipping entry with unsupported compression method", "name", name)
				td.UnsupportedFiles++
				td.LastUnsupportedFile = name

			default:
				if err := handleError(c, td, "cannot extract entry", err); err != nil {
					return err
				}
			}
		}

		// advance past the fixed header and the three variable length fields
		off += zipCentralDirHeaderSize + nameLen + extraLen + commentLen
	}
}

// locateEOCD returns the offset of the end-of-central-directory record.
// The no-comment case places the record exactly 22 bytes before the end of
// the archive and is checked first, otherwise the signature is searched
// scanning backward from the end. The first match scanning backward wins,
// which is the standard disambiguation against the sequence occurring
// inside file data.
func locateEOCD(cur *cursor) (int, error) {
	// fast path: archive without trailing comment
	if off := cur.size() - zipEOCDMinSize; off >= 0 {
		if sig, err := cur.readLE32(off); err == nil && sig == zipEOCDSignature {
			return off, nil
		}
	}

	for off := cur.size() - 4; off >= 0; off-- {
		sig, err := cur.readLE32(off)
		if err != nil {
			return 0, err
		}
		if sig == zipEOCDSignature {
			return off, nil
		}
	}
	return 0, fmt.Errorf("end of central directory signature not found: %w", ErrInvalidData)
}

// extractOne resolves the local file header at localOffset and writes the
// entry payload as a file below dst, creating parent directories as
// needed. The local header fields are authoritative for method and sizes.
func extractOne(t Target, dst string, data []byte, localOffset int64, name string, c *Config, td *TelemetryData) error {
	if localOffset+zipLocalHeaderSize > int64(len(data)) {
		return fmt.Errorf("local header at %d exceeds archive of %d bytes: %w", localOffset, len(data), ErrInvalidData)
	}

	cur := newCursor(data)
	off := int(localOffset)

	sig, err := cur.readLE32(off)
	if err != nil {
		return err
	}
	if sig != zipLocalHeaderSignature {
		return fmt.Errorf("no local header signature at %d: %w", localOffset, ErrInvalidData)
	}

	method, err := cur.readLE16(off + 8)
	if err != nil {
		return err
	}
	compressedSize, err := cur.readLE32(off + 18)
	if err != nil {
		return err
	}
	uncompressedSize, err := cur.readLE32(off + 22)
	if err != nil {
		return err
	}
	nameLen, err := cur.readLE16(off + 26)
	if err != nil {
		return err
	}
	extraLen, err := cur.readLE16(off + 28)
	if err != nil {
		return err
	}

	payloadStart := localOffset + zipLocalHeaderSize + int64(nameLen) + int64(extraLen)
	if payloadStart+int64(compressedSize) > int64(len(data)) {
		return fmt.Errorf("payload of %q at %d with %d bytes exceeds archive: %w", name, payloadStart, compressedSize, ErrInvalidData)
	}
	payload := data[payloadStart : payloadStart+int64(compressedSize)]

	if err := c.CheckExtractionSize(td.ExtractionSize + int64(uncompressedSize)); err != nil {
		return err
	}

	var content []byte
	switch method {

	case zipMethodStored:
		if compressedSize != uncompressedSize {
			return fmt.Errorf("stored entry %q declares %d compressed but %d uncompressed bytes: %w", name, compressedSize, uncompressedSize, ErrSizeMismatch)
		}
		content = payload

	case zipMethodDeflate:
		content, err = InflateRaw(payload, int(uncompressedSize))
		if err != nil {
			// the declared size is metadata, a short stream is a mismatch
			// between payload and declaration from the entry's perspective
			if errors.Is(err, ErrTruncatedStream) {
				return fmt.Errorf("entry %q: %w: %w", name, err, ErrSizeMismatch)
			}
			return fmt.Errorf("entry %q: %w", name, err)
		}

	default:
		return fmt.Errorf("entry %q uses method %d: %w", name, method, ErrUnsupportedCompressionMethod)
	}

	remaining := int64(-1)
	if c.MaxExtractionSize() != -1 {
		remaining = c.MaxExtractionSize() - td.ExtractionSize
	}
	n, err := createFile(t, dst, name, bytes.NewReader(content), c.CustomCreateFileMode(), remaining, c)
	td.ExtractionSize += n
	if err != nil {
		return fmt.Errorf("cannot create %q: %w", name, err)
	}
	td.ExtractedFiles++
	c.Logger().Debug("extracted entry", "name", name, "size", n)
	return nil
}
