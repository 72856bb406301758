// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/zlib"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/netutil"
	"github.com/bureau-foundation/glyph/lib/safemode"
)

const (
	// safeModeQuery is the query parameter form of safemode.Header.
	safeModeQuery = "safe-mode"

	// optionHeaderPrefix introduces a diagram option header, in
	// canonical MIME form.
	optionHeaderPrefix = "Glyph-Diagram-Options-"
)

// jsonRequest is the body of POST /.
type jsonRequest struct {
	Source  string            `json:"diagram_source"`
	Type    string            `json:"diagram_type"`
	Format  string            `json:"output_format"`
	Options map[string]string `json:"diagram_options"`
}

// effectiveSafeMode applies a per-request safe-mode override. The
// header wins over the query parameter; either can only make the
// server mode stricter.
func effectiveSafeMode(c *gin.Context, server safemode.SafeMode) safemode.SafeMode {
	raw := c.GetHeader(safemode.Header)
	if raw == "" {
		raw = c.Query(safeModeQuery)
	}
	return safemode.Stricter(server, safemode.Resolve(raw, server))
}

// requestOptions collects diagram options from option headers and
// query parameters. Names are lowercased; a query parameter overrides
// a header of the same name.
func requestOptions(c *gin.Context) map[string]string {
	options := make(map[string]string)
	for name, values := range c.Request.Header {
		option, ok := strings.CutPrefix(name, optionHeaderPrefix)
		if !ok || option == "" || len(values) == 0 {
			continue
		}
		options[strings.ToLower(option)] = values[0]
	}
	for name, values := range c.Request.URL.Query() {
		if name == safeModeQuery || len(values) == 0 {
			continue
		}
		options[strings.ToLower(name)] = values[0]
	}
	return options
}

// readBody reads the request body, at most limit bytes.
func readBody(c *gin.Context, limit int64) ([]byte, error) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, payloadTooLarge(limit)
		}
		return nil, diagram.BadRequest("dispatch", "reading request body: %v", err)
	}
	return data, nil
}

func payloadTooLarge(limit int64) *diagram.Error {
	return diagram.New(diagram.KindPayloadTooLarge, "dispatch",
		"diagram source exceeds the limit of "+formatBytes(limit))
}

// decodeSource reverses the encoding of GET request paths: base64url
// (padding optional) of zlib-deflated source. The inflated size is
// capped at limit.
func decodeSource(encoded string, limit int64) ([]byte, error) {
	compressed, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	if err != nil {
		return nil, diagram.BadRequest("dispatch", "diagram source is not valid base64url: %v", err)
	}
	reader, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, diagram.BadRequest("dispatch", "diagram source is not zlib-compressed: %v", err)
	}
	defer reader.Close()
	source, err := netutil.ReadLimited(reader, limit)
	if errors.Is(err, netutil.ErrTooLarge) {
		return nil, payloadTooLarge(limit)
	}
	if err != nil {
		return nil, diagram.BadRequest("dispatch", "decompressing diagram source: %v", err)
	}
	return source, nil
}

// EncodeSource produces the {encoded} path segment for source. It is
// the inverse of the decoding done for GET requests.
func EncodeSource(source []byte) (string, error) {
	var buffer bytes.Buffer
	writer, err := zlib.NewWriterLevel(&buffer, zlib.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := writer.Write(source); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer.Bytes()), nil
}

// parseJSONRequest decodes the body of POST /.
func parseJSONRequest(body []byte) (jsonRequest, error) {
	var request jsonRequest
	if err := json.Unmarshal(body, &request); err != nil {
		return request, diagram.BadRequest("dispatch", "request body is not a valid JSON conversion request: %v", err)
	}
	if request.Type == "" {
		return request, diagram.BadRequest("dispatch", "diagram_type is required")
	}
	if request.Format == "" {
		return request, diagram.BadRequest("dispatch", "output_format is required")
	}
	return request, nil
}

func formatBytes(size int64) string {
	switch {
	case size >= 1<<20 && size%(1<<20) == 0:
		return strconv.FormatInt(size>>20, 10) + " MiB"
	case size >= 1<<10 && size%(1<<10) == 0:
		return strconv.FormatInt(size>>10, 10) + " KiB"
	default:
		return strconv.FormatInt(size, 10) + " bytes"
	}
}
