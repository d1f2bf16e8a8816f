// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package mcbootstrap

// optimalBlockSize returns [defaultBlockSize] on platforms without a
// filesystem block size query.
func optimalBlockSize(_ string) int {
	return defaultBlockSize
}
