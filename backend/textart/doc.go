// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package textart is glyph's embedded backend: it renders monospace
// text-art diagrams in process, without spawning a tool or calling a
// companion.
//
// The source is plain text with two directives, each on a line of its
// own:
//
//	!title Deployment
//	!include shared/legend.txt
//	!include https://example.com/boxes.txt
//
// !title sets a caption drawn above the frame. !include splices
// another text-art document in place, recursively, up to a fixed
// depth. Whether an include may be resolved depends on the request's
// safe mode: local paths need safe or unsafe, URLs need unsafe. At
// secure every include is refused before anything is read.
//
// The output is the expanded text inside a frame, as txt, svg, or png
// (drawn with the basicfont 7x13 face).
package textart
