// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package mcbootstrap provisions a Minecraft server working directory from
// a vanilla server distribution, a CurseForge modpack or a directly
// addressed server pack, driven by environment configuration.
//
// At its core the package carries its own archive engine: [Classify]
// detects gzip streams and zip archives by their magic bytes, [InflateRaw]
// decodes headerless deflate data into a caller-sized buffer, [InflateGzip]
// parses the gzip container framing and [UnpackZip] walks a zip archive
// through its end-of-central-directory record, central directory and local
// file headers, all operating on fully buffered input. Extracted contents
// can be output to the filesystem or an in-memory target.
//
// Archive entry names are mirrored below the destination exactly as they
// appear in the archive. There is no path sanitization: entry names with
// parent directory components or absolute paths escape the destination
// directory. Only extract archives from sources you trust.
//
// Configuration is done using the [Config] struct in an option pattern
// style, which carries the logger, the telemetry hook and the input and
// extraction limits. Telemetry data is captured during extraction and
// handed to the configured [TelemetryHook].
package mcbootstrap
