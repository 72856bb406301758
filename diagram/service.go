// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package diagram

import (
	"context"
	"slices"

	"github.com/bureau-foundation/glyph/lib/safemode"
)

// Request is one conversion. It is built by the gateway (or the CLI)
// and treated as immutable by every backend.
type Request struct {
	// Type is the registry identifier the request was dispatched
	// under. Backends registered under several aliases use it to
	// pick a dialect (seqdiag versus blockdiag, vega versus
	// vegalite).
	Type string

	Format Format
	Source []byte

	SafeMode safemode.SafeMode

	// Options are backend-specific settings from query parameters,
	// option headers, or the JSON body. Names are lowercase.
	// Backends ignore options they do not recognize.
	Options map[string]string
}

// Option returns the named option, or "" when absent.
func (r Request) Option(name string) string {
	return r.Options[name]
}

// Result is a successful conversion.
type Result struct {
	ContentType string
	Data        []byte
}

// NewResult returns a Result with the content type of format.
func NewResult(format Format, data []byte) *Result {
	return &Result{ContentType: format.ContentType(), Data: data}
}

// Service converts diagram source to an output format. Implementations
// must be safe for concurrent use and must not keep per-request state
// between calls.
type Service interface {
	// Formats lists the output formats the service can produce. The
	// first entry is the default for format negotiation.
	Formats() []Format

	// Convert renders request.Source. Failures are *Error values;
	// anything else is treated as an execution fault by the gateway.
	Convert(ctx context.Context, request Request) (*Result, error)
}

// Variant says how a service produces its output.
type Variant string

const (
	VariantEmbedded Variant = "embedded"
	VariantProcess  Variant = "process"
	VariantRemote   Variant = "remote"
)

// VariantReporter is implemented by services that can say which
// Variant they are. It is used for listings only.
type VariantReporter interface {
	Variant() Variant
}

// VariantOf returns the service's Variant, or "" when it does not
// report one.
func VariantOf(service Service) Variant {
	if reporter, ok := service.(VariantReporter); ok {
		return reporter.Variant()
	}
	return ""
}

// CheckFormat returns an unsupported-format error if request.Format is
// not among service.Formats(). The gateway checks this before
// dispatch; backends call it again at the top of Convert so a direct
// caller cannot bypass it.
func CheckFormat(service Service, request Request) error {
	formats := service.Formats()
	if slices.Contains(formats, request.Format) {
		return nil
	}
	return UnsupportedFormat(request.Type, request.Format, formats)
}
