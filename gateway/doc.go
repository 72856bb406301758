// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package gateway is glyph's HTTP front end.
//
// Every conversion request moves through the same steps: parse the
// type, format, source, options, and safe mode from the route; resolve
// the type in the sealed [diagram.Registry]; validate the format
// against what the service produces; wait for a slot in the [Pool];
// convert; and write either the image bytes or a JSON error whose
// status comes from the error's [diagram.Kind].
//
// A request may tighten the server's safe mode with the
// Glyph-Safe-Mode header or the safe-mode query parameter, never
// loosen it. At secure, policy messages are generic and filesystem
// paths in renderer diagnostics are masked.
//
// Routes:
//
//	POST /{type}/{format}            body is the source
//	POST /{type}                     format from Accept
//	GET  /{type}/{format}/{encoded}  deflate + base64url source
//	POST /                           JSON request
//	GET  /health, /healthz, /v1/health
//	GET  /                           hello document
package gateway
