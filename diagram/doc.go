// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package diagram defines the conversion contract shared by every
// rendering backend, the registry that binds diagram-type identifiers
// to backends, and the error taxonomy the gateway maps to HTTP.
//
// # Services
//
// A [Service] converts diagram source to one of the [Format] values it
// declares. Backends differ in how they produce the result: in
// process, through an external tool run by lib/commander, or by
// calling a companion HTTP service. The gateway does not know or care
// which.
//
// Every Convert call receives the resolved safe mode on the
// [Request]. A backend that supports include directives or remote
// references enforces the mode itself; one that has no such syntax
// ignores it, which is equivalent to treating every request as
// secure.
//
// # Registry
//
// A [Registry] is populated during startup with [Registry.Register]
// (several identifiers may alias one service) and sealed before the
// server accepts connections. After [Registry.Seal] the registry is
// read-only, so lookups take no locks.
//
// # Errors
//
// Conversion failures are reported as [*Error] values carrying a
// [Kind]:
//
//   - [KindBadRequest]: malformed input, unknown type, unsupported
//     format. HTTP 400.
//   - [KindPayloadTooLarge]: the request body exceeded the limit.
//     HTTP 413.
//   - [KindPolicyViolation]: the source asked for something the safe
//     mode forbids. HTTP 400.
//   - [KindBackendFailure]: the renderer rejected the source. HTTP
//     400 with the renderer's diagnostic as Detail.
//   - [KindExecutionFault]: launch failure, timeout, unreachable
//     companion. HTTP 500 with a generic message.
//   - [KindOverloaded]: the conversion pool queue is full. HTTP 503.
//
// Any error that is not an *Error is treated as an execution fault.
package diagram
