// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/safemode"
	"github.com/bureau-foundation/glyph/lib/version"
)

// DefaultBodyLimit bounds a diagram source when no limit is
// configured: 1 MiB.
const DefaultBodyLimit int64 = 1 << 20

// securePolicyMessage replaces policy violation messages at secure so
// the response does not confirm which resources exist.
const securePolicyMessage = "diagram source references a resource forbidden by the safe mode policy"

// Handler dispatches conversion requests to the registry.
type Handler struct {
	registry  *diagram.Registry
	pool      *Pool
	safeMode  safemode.SafeMode
	bodyLimit int64
	logger    *slog.Logger
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// Registry resolves diagram types. It is sealed by NewHandler.
	Registry *diagram.Registry

	// Pool bounds concurrent conversions. Nil means NewPool with
	// defaults.
	Pool *Pool

	// SafeMode is the server's policy. Requests may only tighten it.
	SafeMode safemode.SafeMode

	// BodyLimit bounds the diagram source. Zero means
	// DefaultBodyLimit.
	BodyLimit int64

	Logger *slog.Logger
}

// NewHandler returns a Handler for config and seals its registry.
func NewHandler(config HandlerConfig) (*Handler, error) {
	if config.Registry == nil {
		return nil, errors.New("gateway: registry is required")
	}
	if !config.SafeMode.Valid() {
		return nil, fmt.Errorf("gateway: invalid safe mode %v", config.SafeMode)
	}
	config.Registry.Seal()

	pool := config.Pool
	if pool == nil {
		pool = NewPool(PoolConfig{})
	}
	bodyLimit := config.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyLimit
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry:  config.Registry,
		pool:      pool,
		safeMode:  config.SafeMode,
		bodyLimit: bodyLimit,
		logger:    logger,
	}, nil
}

// HandleConvert serves POST /{type}/{format}.
func (h *Handler) HandleConvert(c *gin.Context) {
	mode := effectiveSafeMode(c, h.safeMode)
	source, err := readBody(c, h.bodyLimit)
	if err != nil {
		h.writeError(c, mode, err)
		return
	}
	h.dispatch(c, diagram.Request{
		Type:     c.Param("type"),
		Format:   diagram.ParseFormat(c.Param("format")),
		Source:   source,
		SafeMode: mode,
		Options:  requestOptions(c),
	})
}

// HandleConvertNegotiated serves POST /{type}, taking the format from
// the Accept header.
func (h *Handler) HandleConvertNegotiated(c *gin.Context) {
	mode := effectiveSafeMode(c, h.safeMode)
	diagramType := c.Param("type")
	service, err := h.resolve(diagramType)
	if err != nil {
		h.writeError(c, mode, err)
		return
	}
	accept := c.GetHeader("Accept")
	format, ok := diagram.Negotiate(accept, service.Formats())
	if !ok {
		h.writeError(c, mode, diagram.BadRequest("dispatch",
			"no supported output format for %s in Accept %q; must be one of %s",
			diagramType, accept, joinFormats(service.Formats())))
		return
	}
	source, err := readBody(c, h.bodyLimit)
	if err != nil {
		h.writeError(c, mode, err)
		return
	}
	h.dispatch(c, diagram.Request{
		Type:     diagramType,
		Format:   format,
		Source:   source,
		SafeMode: mode,
		Options:  requestOptions(c),
	})
}

// HandleConvertEncoded serves GET /{type}/{format}/{encoded}.
func (h *Handler) HandleConvertEncoded(c *gin.Context) {
	mode := effectiveSafeMode(c, h.safeMode)
	source, err := decodeSource(c.Param("encoded"), h.bodyLimit)
	if err != nil {
		h.writeError(c, mode, err)
		return
	}
	h.dispatch(c, diagram.Request{
		Type:     c.Param("type"),
		Format:   diagram.ParseFormat(c.Param("format")),
		Source:   source,
		SafeMode: mode,
		Options:  requestOptions(c),
	})
}

// HandleConvertJSON serves POST / with a JSON request body.
func (h *Handler) HandleConvertJSON(c *gin.Context) {
	mode := effectiveSafeMode(c, h.safeMode)
	// The JSON envelope and escaping add to the source size; allow
	// some headroom over the source limit.
	body, err := readBody(c, h.bodyLimit+h.bodyLimit/4+4096)
	if err != nil {
		h.writeError(c, mode, err)
		return
	}
	request, err := parseJSONRequest(body)
	if err != nil {
		h.writeError(c, mode, err)
		return
	}
	if int64(len(request.Source)) > h.bodyLimit {
		h.writeError(c, mode, payloadTooLarge(h.bodyLimit))
		return
	}
	options := make(map[string]string, len(request.Options))
	for name, value := range request.Options {
		options[strings.ToLower(name)] = value
	}
	h.dispatch(c, diagram.Request{
		Type:     request.Type,
		Format:   diagram.ParseFormat(request.Format),
		Source:   []byte(request.Source),
		SafeMode: mode,
		Options:  options,
	})
}

// dispatch takes a parsed request through type resolution, format
// validation, admission, and conversion, and writes the response.
func (h *Handler) dispatch(c *gin.Context, request diagram.Request) {
	if len(request.Source) == 0 {
		h.writeError(c, request.SafeMode, diagram.BadRequest("dispatch", "diagram source is empty"))
		return
	}
	service, err := h.resolve(request.Type)
	if err != nil {
		h.writeError(c, request.SafeMode, err)
		return
	}
	if err := diagram.CheckFormat(service, request); err != nil {
		h.writeError(c, request.SafeMode, err)
		return
	}

	ctx := c.Request.Context()
	release, err := h.pool.Acquire(ctx)
	if err != nil {
		h.writeError(c, request.SafeMode, err)
		return
	}
	start := time.Now()
	result, err := h.convert(ctx, service, request)
	release()
	if err != nil {
		h.writeError(c, request.SafeMode, err)
		return
	}

	h.logger.Debug("conversion finished",
		"type", request.Type,
		"format", request.Format,
		"safe_mode", request.SafeMode,
		"bytes", len(result.Data),
		"duration", time.Since(start),
		"request_id", requestID(c),
	)

	etag, err := contentETag(result.Data)
	if err != nil {
		h.logger.Warn("computing etag failed", "error", err, "request_id", requestID(c))
	} else {
		c.Header("ETag", etag)
		if match := c.GetHeader("If-None-Match"); match != "" && etagMatches(match, etag) {
			c.Status(http.StatusNotModified)
			return
		}
	}
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// resolve looks up a diagram type.
func (h *Handler) resolve(diagramType string) (diagram.Service, error) {
	if diagramType == "" {
		return nil, diagram.BadRequest("dispatch", "diagram type is required")
	}
	service, ok := h.registry.Lookup(diagramType)
	if !ok {
		return nil, diagram.BadRequest("dispatch", "unsupported diagram type %q; must be one of %s",
			diagramType, strings.Join(h.registry.Identifiers(), ", "))
	}
	return service, nil
}

// convert runs one conversion. A panicking backend becomes an
// execution fault for this request only.
func (h *Handler) convert(ctx context.Context, service diagram.Service, request diagram.Request) (result *diagram.Result, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			h.logger.Error("conversion panicked",
				"type", request.Type,
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
			result, err = nil, diagram.ExecutionFault(request.Type, fmt.Errorf("panic: %v", recovered))
		}
	}()
	result, err = service.Convert(ctx, request)
	if err == nil && result == nil {
		err = diagram.ExecutionFault(request.Type, errors.New("backend returned no result"))
	}
	return result, err
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error     string       `json:"error"`
	Kind      diagram.Kind `json:"kind"`
	RequestID string       `json:"request_id,omitempty"`
}

// absolutePath matches filesystem paths in renderer diagnostics, with
// the character that precedes them.
var absolutePath = regexp.MustCompile(`(^|[\s'"(=:\[])/[^\s'"():,\]]+`)

// writeError classifies err and writes the JSON error response. What
// the client sees depends on the kind and on the request's safe mode;
// everything is logged.
func (h *Handler) writeError(c *gin.Context, mode safemode.SafeMode, err error) {
	typed, ok := diagram.AsError(err)
	if !ok {
		typed = diagram.ExecutionFault("dispatch", err)
	}
	id := requestID(c)

	message := typed.Message
	switch typed.Kind {
	case diagram.KindPolicyViolation:
		if mode.AtLeast(safemode.Secure) {
			message = securePolicyMessage
		}
	case diagram.KindBackendFailure:
		if detail := strings.TrimSpace(typed.Detail); detail != "" {
			if mode.AtLeast(safemode.Secure) {
				detail = absolutePath.ReplaceAllString(detail, "${1}<path>")
			}
			message += ": " + detail
		}
	case diagram.KindExecutionFault:
		message = "diagram conversion failed"
	case diagram.KindOverloaded:
		c.Header("Retry-After", h.pool.RetryAfter())
	}

	attributes := []any{
		"kind", typed.Kind,
		"op", typed.Op,
		"error", typed,
		"request_id", id,
	}
	switch {
	case errors.Is(typed, context.Canceled):
		h.logger.Info("client went away before conversion finished", attributes...)
	case typed.Kind.ClientFault():
		h.logger.Debug("request rejected", attributes...)
	default:
		h.logger.Error("conversion failed", attributes...)
	}

	c.AbortWithStatusJSON(typed.Kind.HTTPStatus(), errorResponse{
		Error:     message,
		Kind:      typed.Kind,
		RequestID: id,
	})
}

// healthResponse is the body of the health endpoints.
type healthResponse struct {
	Status   string        `json:"status"`
	Version  version.Build `json:"version"`
	Backends []string      `json:"backends"`
	Workers  int           `json:"workers"`
	Running  int           `json:"running"`
	Waiting  int           `json:"waiting"`
}

// HandleHealth serves the health endpoints.
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:   "pass",
		Version:  version.Current(),
		Backends: h.registry.Identifiers(),
		Workers:  h.pool.Workers(),
		Running:  h.pool.Running(),
		Waiting:  h.pool.Waiting(),
	})
}

// helloResponse is the body of GET /.
type helloResponse struct {
	Name         string        `json:"name"`
	Version      version.Build `json:"version"`
	SafeMode     string        `json:"safe_mode"`
	DiagramTypes []diagramType `json:"diagram_types"`
}

type diagramType struct {
	Name    string           `json:"name"`
	Formats []diagram.Format `json:"formats"`
	Variant diagram.Variant  `json:"variant,omitempty"`
}

// HandleHello serves GET /, describing what the server renders.
func (h *Handler) HandleHello(c *gin.Context) {
	identifiers := h.registry.Identifiers()
	types := make([]diagramType, 0, len(identifiers))
	for _, identifier := range identifiers {
		service, _ := h.registry.Lookup(identifier)
		types = append(types, diagramType{
			Name:    identifier,
			Formats: service.Formats(),
			Variant: diagram.VariantOf(service),
		})
	}
	c.JSON(http.StatusOK, helloResponse{
		Name:         "glyph",
		Version:      version.Current(),
		SafeMode:     h.safeMode.String(),
		DiagramTypes: types,
	})
}

// HandleNotFound serves unknown routes.
func (h *Handler) HandleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, errorResponse{
		Error:     fmt.Sprintf("no route for %s %s", c.Request.Method, c.Request.URL.Path),
		Kind:      "not_found",
		RequestID: requestID(c),
	})
}

func joinFormats(formats []diagram.Format) string {
	names := make([]string, len(formats))
	for i, format := range formats {
		names[i] = string(format)
	}
	return strings.Join(names, ", ")
}
