// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package safemode defines the trust policy attached to every diagram
// conversion.
//
// A [SafeMode] is one of three ordered levels:
//
//   - [Unsafe]: the diagram source may read local files and fetch
//     remote resources.
//   - [Safe]: local file reads are permitted, remote fetches are not.
//   - [Secure]: neither is permitted. This is the server default.
//
// The integer order of the levels is the policy order, so "at least
// as strict as" is a plain comparison. The server-wide level is a
// ceiling on trust: a request may ask for a stricter level with
// [Stricter], never a looser one.
//
// [Resolve] parses untrusted input (headers, query parameters) and
// never fails: blank or unrecognized values fall back to the
// caller's default. Configuration files go through UnmarshalText,
// which rejects unknown values so typos are caught at startup.
package safemode
