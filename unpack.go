// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"context"
	"fmt"
	"io"
	"time"
)

// now is a function pointer that returns time.Now to the caller.
var now = time.Now

// unpackFunc is a function that expands in-memory archive data below dst.
type unpackFunc func(context.Context, Target, string, io.Reader, []byte, *Config, *TelemetryData) error

// availableUnpacker associates a detected file type with its unpacker.
type availableUnpacker struct {
	FileType    FileType
	HeaderCheck func([]byte) bool
	Unpack      unpackFunc
}

// availableUnpackers is the collection of unpack functions with the header
// check that selects them.
var availableUnpackers = []availableUnpacker{
	{
		FileType:    FileTypeZip,
		HeaderCheck: IsZip,
		Unpack: func(ctx context.Context, t Target, dst string, _ io.Reader, data []byte, c *Config, td *TelemetryData) error {
			return extractAll(ctx, t, dst, data, c, td)
		},
	},
	{
		FileType:    FileTypeGzip,
		HeaderCheck: IsGzip,
		Unpack:      decompressGzipData,
	},
}

// Unpack detects the format of src by its magic bytes and expands it below
// dst. Zip archives are extracted entry by entry, gzip streams are
// decompressed into a single file. Inputs matching neither format fail
// with [ErrInvalidData].
func Unpack(ctx context.Context, t Target, dst string, src io.Reader, c *Config) error {
	td := &TelemetryData{}
	defer c.TelemetryHook()(ctx, td)
	defer captureExtractionDuration(td, now())

	data, err := readerToBytes(src, c)
	if err != nil {
		return recordError(td, "cannot read input", err)
	}
	td.InputSize = int64(len(data))

	for _, u := range availableUnpackers {
		if u.HeaderCheck(data) {
			td.ExtractedType = u.FileType.String()
			return u.Unpack(ctx, t, dst, src, data, c, td)
		}
	}
	return recordError(td, "cannot unpack", fmt.Errorf("no supported archive or compression format detected: %w", ErrInvalidData))
}

// readerToBytes materializes src fully in memory, limited by the
// configured maximum input size. The extraction engine operates on
// complete buffers, streaming inputs are drained first.
func readerToBytes(src io.Reader, c *Config) ([]byte, error) {
	limited := newLimitErrorReader(src, c.MaxInputSize())
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("cannot read input: %w", err)
	}
	return data, nil
}

// captureExtractionDuration captures the duration of the extraction
func captureExtractionDuration(td *TelemetryData, start time.Time) {
	stop := now()
	td.ExtractionDuration = stop.Sub(start)
}

// recordError captures the error in the telemetry data and returns the
// wrapped error. It is used for structural failures that always abort the
// operation, regardless of the continue-on-error policy.
func recordError(td *TelemetryData, msg string, err error) error {
	td.ExtractionErrors++
	td.LastExtractionError = fmt.Errorf("%s: %w", msg, err)
	return td.LastExtractionError
}

// handleError increases the error counter, sets the latest error and
// decides if the extraction should continue.
func handleError(c *Config, td *TelemetryData, msg string, err error) error {

	// increase error counter and set error
	td.ExtractionErrors++
	td.LastExtractionError = fmt.Errorf("%s: %w", msg, err)

	// do not end on error
	if c.ContinueOnError() {
		c.Logger().Error(msg, "error", err)
		return nil
	}

	// end extraction on error
	return td.LastExtractionError
}
