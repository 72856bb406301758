// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tool implements diagram backends that shell out to an
// external renderer through lib/commander: graphviz (dot), erd,
// svgbob, nomnoml, vega and vega-lite, wavedrom, and bytefield.
//
// Each backend builds an argument vector from a fixed template plus
// allowlisted diagram options. Option values that look like flags
// are rejected, so a request cannot smuggle extra switches to the
// tool. Diagram source reaches the tool on stdin or as a file in the
// per-call working directory, never on the command line.
//
// Safe-mode enforcement is syntax-specific and happens before the
// tool runs:
//
//   - graphviz: the image, imagepath, shapefile, and fontpath
//     attributes read local files and are refused at secure.
//   - nomnoml: #import directives are refused at secure.
//   - vega, vegalite: "url" data references are refused at secure;
//     remote URLs are refused at safe.
//
// The remaining tools have no include syntax and render the same at
// every level.
//
// Commander failures are classified for the gateway: a non-zero exit
// or a missing output file is a backend failure carrying the tool's
// diagnostic; launch failures, timeouts, and cancellation are
// execution faults.
package tool
