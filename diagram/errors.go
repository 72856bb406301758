// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package diagram

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a conversion failure.
type Kind string

const (
	KindBadRequest      Kind = "bad_request"
	KindPayloadTooLarge Kind = "payload_too_large"
	KindPolicyViolation Kind = "policy_violation"
	KindBackendFailure  Kind = "backend_failure"
	KindExecutionFault  Kind = "execution_fault"
	KindOverloaded      Kind = "overloaded"
)

// HTTPStatus returns the response status for the kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest, KindPolicyViolation, KindBackendFailure:
		return http.StatusBadRequest
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindOverloaded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ClientFault reports whether the failure is attributable to the
// request rather than the server.
func (k Kind) ClientFault() bool {
	return k.HTTPStatus() < http.StatusInternalServerError
}

// Error is a classified conversion failure.
type Error struct {
	Kind Kind

	// Op names the operation that failed, for logs ("graphviz",
	// "dispatch", "remote mermaid").
	Op string

	// Message is safe to return to the client.
	Message string

	// Detail is renderer diagnostic output (a syntax error with a
	// line number, typically). The gateway decides whether the
	// client sees it based on Kind and safe mode.
	Detail string

	// Cause is the underlying error. It is logged, never returned
	// to the client.
	Cause error
}

func (e *Error) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "[%s:%s] %s", e.Kind, e.Op, e.Message)
	if e.Detail != "" {
		fmt.Fprintf(&builder, " (%s)", firstLine(e.Detail))
	}
	if e.Cause != nil {
		fmt.Fprintf(&builder, ": %v", e.Cause)
	}
	return builder.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New returns an Error without a cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap classifies err. If err already carries an *Error, that
// classification wins and is returned unchanged. Wrap(nil) is nil.
func Wrap(kind Kind, op, message string, err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

// BadRequest returns a KindBadRequest error with a formatted message.
func BadRequest(op, format string, args ...any) *Error {
	return New(KindBadRequest, op, fmt.Sprintf(format, args...))
}

// UnsupportedFormat reports a format the service does not produce.
func UnsupportedFormat(diagramType string, format Format, supported []Format) *Error {
	names := make([]string, len(supported))
	for i, candidate := range supported {
		names[i] = string(candidate)
	}
	return New(KindBadRequest, diagramType, fmt.Sprintf(
		"unsupported output format %q for %s; must be one of %s",
		format, diagramType, strings.Join(names, ", ")))
}

// PolicyViolation reports that the source referenced something the
// request's safe mode forbids. Message may name the offending
// reference; the gateway replaces it with a generic text at secure.
func PolicyViolation(op, message string) *Error {
	return New(KindPolicyViolation, op, message)
}

// BackendFailure reports that the renderer ran and rejected the
// source.
func BackendFailure(op, message, detail string, cause error) *Error {
	return &Error{Kind: KindBackendFailure, Op: op, Message: message, Detail: detail, Cause: cause}
}

// ExecutionFault reports a server-side failure to perform the
// conversion.
func ExecutionFault(op string, cause error) *Error {
	return &Error{Kind: KindExecutionFault, Op: op, Message: "diagram conversion failed", Cause: cause}
}

// AsError extracts the *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var typed *Error
	if errors.As(err, &typed) {
		return typed, true
	}
	return nil, false
}

// KindOf returns the Kind of err. Errors that are not classified are
// execution faults; KindOf(nil) is "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if typed, ok := AsError(err); ok {
		return typed.Kind
	}
	return KindExecutionFault
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func firstLine(text string) string {
	text = strings.TrimSpace(text)
	if index := strings.IndexByte(text, '\n'); index >= 0 {
		return text[:index]
	}
	return text
}
