// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides the entrypoint helper for the glyph
// binary: reporting an unrecoverable error from run() to stderr,
// where the structured logger may not exist yet, and exiting.
package process
