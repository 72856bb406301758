// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for glyph packages.
//
// [WriteExecutable] drops a small /bin/sh script into a test
// directory. Backend and commander tests use these scripts as
// stand-ins for real rendering tools (dot, svgbob, vg2svg) so the
// suite runs on hosts where none of those are installed.
//
// [RequireReceive] wraps the select-with-timeout pattern so tests
// waiting on goroutines fail instead of hanging.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
