// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package remote implements diagram backends that relay conversions
// to companion HTTP services: mermaid, bpmn, excalidraw, the
// blockdiag family, and plantuml.
//
// A companion receives POST {base}/{type}/{format} with the diagram
// source as the body, the request's safe mode in the Glyph-Safe-Mode
// header, and diagram options as query parameters. Enforcing the safe
// mode against the diagram language is the companion's job; the
// gateway only guarantees the mode it forwards is never looser than
// the server's.
//
// The HTTP client retries only when the connection could not be
// established. Once a request has reached the companion it is never
// resent, since a conversion that timed out or failed half-way is not
// known to be safe to repeat. Redirects are not followed.
//
// Response mapping: 2xx is the rendered image; 4xx is a backend
// failure with the response body as the diagnostic; 5xx, timeouts,
// and connection failures are execution faults.
package remote
