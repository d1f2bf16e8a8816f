// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package mcbootstrap

import (
	"fmt"
	"io"
)

// StatusReporter emits human readable progress lines during environment
// validation and provisioning, one line per completed check or step in the
// form "label: OK - detail" or "label: FAIL - detail". It is separate from
// the structured logging, which carries diagnostics instead of progress.
//
// A nil *StatusReporter is valid and silent, so library callers that only
// want structured logs can pass nil.
type StatusReporter struct {
	w io.Writer
}

// NewStatusReporter returns a StatusReporter writing to w.
func NewStatusReporter(w io.Writer) *StatusReporter {
	return &StatusReporter{w: w}
}

// OK reports a succeeded step. The detail is optional.
func (s *StatusReporter) OK(label, detail string) {
	if s == nil || s.w == nil {
		return
	}
	if detail == "" {
		fmt.Fprintf(s.w, "%s: OK\n", label)
		return
	}
	fmt.Fprintf(s.w, "%s: OK - %s\n", label, detail)
}

// Fail reports a failed step with a detail naming the cause.
func (s *StatusReporter) Fail(label, detail string) {
	if s == nil || s.w == nil {
		return
	}
	fmt.Fprintf(s.w, "%s: FAIL - %s\n", label, detail)
}

// Skip reports a step that was not necessary, e.g. a download whose
// target already exists.
func (s *StatusReporter) Skip(label, detail string) {
	if s == nil || s.w == nil {
		return
	}
	if detail == "" {
		fmt.Fprintf(s.w, "%s: SKIPPED\n", label)
		return
	}
	fmt.Fprintf(s.w, "%s: SKIPPED - %s\n", label, detail)
}

// Step reports the beginning of a longer running phase, e.g. a download
// or an extraction.
func (s *StatusReporter) Step(message string) {
	if s == nil || s.w == nil {
		return
	}
	fmt.Fprintln(s.w, message)
}
