// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package diagram

import (
	"mime"
	"slices"
	"strconv"
	"strings"
)

// Format is an output encoding, identified by a lowercase token as it
// appears in request paths.
type Format string

const (
	FormatSVG    Format = "svg"
	FormatPNG    Format = "png"
	FormatPDF    Format = "pdf"
	FormatJPEG   Format = "jpeg"
	FormatTXT    Format = "txt"
	FormatUTXT   Format = "utxt"
	FormatBase64 Format = "base64"
)

var contentTypes = map[Format]string{
	FormatSVG:    "image/svg+xml",
	FormatPNG:    "image/png",
	FormatPDF:    "application/pdf",
	FormatJPEG:   "image/jpeg",
	FormatTXT:    "text/plain; charset=utf-8",
	FormatUTXT:   "text/plain; charset=utf-8",
	FormatBase64: "text/plain",
}

// mediaTypeFormats maps bare media types back to formats for Accept
// negotiation. text/plain is deliberately absent: txt, utxt, and
// base64 share it, so it cannot select one.
var mediaTypeFormats = map[string]Format{
	"image/svg+xml":   FormatSVG,
	"image/png":       FormatPNG,
	"application/pdf": FormatPDF,
	"image/jpeg":      FormatJPEG,
}

// ParseFormat normalizes a format token from a path or JSON field.
// "jpg" is accepted as an alias for jpeg.
func ParseFormat(value string) Format {
	format := Format(strings.ToLower(strings.TrimSpace(value)))
	if format == "jpg" {
		return FormatJPEG
	}
	return format
}

// ContentType returns the HTTP Content-Type for the format.
func (f Format) ContentType() string {
	if contentType, ok := contentTypes[f]; ok {
		return contentType
	}
	return "application/octet-stream"
}

func (f Format) String() string { return string(f) }

// Negotiate picks an output format from an Accept header value.
// Entries are considered in header order; q=0 entries are skipped.
// A wildcard (or an empty header) selects the first supported
// format. The boolean is false when nothing in the header is
// supported.
func Negotiate(accept string, supported []Format) (Format, bool) {
	if len(supported) == 0 {
		return "", false
	}
	if strings.TrimSpace(accept) == "" {
		return supported[0], true
	}
	for _, entry := range strings.Split(accept, ",") {
		mediaType, parameters, err := mime.ParseMediaType(strings.TrimSpace(entry))
		if err != nil {
			continue
		}
		if quality, ok := parameters["q"]; ok {
			if weight, err := strconv.ParseFloat(quality, 64); err == nil && weight <= 0 {
				continue
			}
		}
		switch {
		case mediaType == "*/*":
			return supported[0], true
		case strings.HasSuffix(mediaType, "/*"):
			prefix := strings.TrimSuffix(mediaType, "*")
			for _, format := range supported {
				if strings.HasPrefix(format.ContentType(), prefix) {
					return format, true
				}
			}
		default:
			if format, ok := mediaTypeFormats[mediaType]; ok && slices.Contains(supported, format) {
				return format, true
			}
		}
	}
	return "", false
}
