// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Glyph is the diagram rendering server and its command-line client.
//
//	glyph serve [--config glyph.yaml] [--listen :8000] [--safe-mode secure]
//	glyph render --type graphviz --format svg [file]
//	glyph render --encode [file]
//	glyph backends
//	glyph version
//
// serve runs the HTTP gateway until SIGINT or SIGTERM, then drains
// in-flight conversions for up to 30 seconds. render converts a
// single diagram locally through the same backends the server would
// use, reading from stdin when no file is named. backends lists every
// registered diagram type with its variant and output formats.
//
// Configuration comes from the YAML file, .env, and GLYPH_* variables
// as described in lib/config; command-line flags override all three.
package main
