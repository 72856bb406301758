// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package textart

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/safemode"
)

const (
	maxIncludeDepth = 8
	maxLines        = 2000
	maxColumns      = 400
)

// Service is the embedded text-art backend.
type Service struct {
	resolver IncludeResolver
	logger   *slog.Logger
}

// New returns a Service that resolves includes with resolver. A nil
// resolver refuses every include.
func New(resolver IncludeResolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{resolver: resolver, logger: logger}
}

func (s *Service) Formats() []diagram.Format {
	return []diagram.Format{diagram.FormatSVG, diagram.FormatPNG, diagram.FormatTXT}
}

func (s *Service) Variant() diagram.Variant { return diagram.VariantEmbedded }

func (s *Service) Convert(ctx context.Context, request diagram.Request) (*diagram.Result, error) {
	if err := diagram.CheckFormat(s, request); err != nil {
		return nil, err
	}

	document := &document{}
	if err := s.expand(ctx, document, request.Source, request.SafeMode, 0); err != nil {
		return nil, err
	}
	if len(document.lines) == 0 && document.title == "" {
		return nil, diagram.BadRequest("textart", "diagram is empty")
	}

	var (
		data []byte
		err  error
	)
	switch request.Format {
	case diagram.FormatTXT:
		data = renderText(document)
	case diagram.FormatSVG:
		data = renderSVG(document)
	case diagram.FormatPNG:
		data, err = renderPNG(document)
	}
	if err != nil {
		return nil, diagram.ExecutionFault("textart", err)
	}
	return diagram.NewResult(request.Format, data), nil
}

// document is an expanded text-art source.
type document struct {
	title string
	lines []string
}

// expand appends source to document, resolving directives.
func (s *Service) expand(ctx context.Context, document *document, source []byte, mode safemode.SafeMode, depth int) error {
	if depth > maxIncludeDepth {
		return diagram.BackendFailure("textart", errIncludeDepth.Error(), "", errIncludeDepth)
	}

	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 4096), maxColumns*4+1)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return diagram.ExecutionFault("textart", err)
		}
		line := strings.TrimRight(scanner.Text(), " \t\r")

		if title, ok := strings.CutPrefix(line, "!title "); ok {
			document.title = strings.TrimSpace(title)
			continue
		}
		if target, ok := strings.CutPrefix(line, "!include "); ok {
			included, err := s.include(ctx, strings.TrimSpace(target), mode)
			if err != nil {
				return err
			}
			if err := s.expand(ctx, document, included, mode, depth+1); err != nil {
				return err
			}
			continue
		}

		line = strings.ReplaceAll(line, "\t", "    ")
		if len([]rune(line)) > maxColumns {
			return diagram.BadRequest("textart", "line %d is longer than %d columns", len(document.lines)+1, maxColumns)
		}
		document.lines = append(document.lines, line)
		if len(document.lines) > maxLines {
			return diagram.BadRequest("textart", "diagram has more than %d lines", maxLines)
		}
	}
	if err := scanner.Err(); err != nil {
		return diagram.BadRequest("textart", "reading diagram: %v", err)
	}
	return nil
}

// include applies the safe mode to target and, if permitted, reads it.
func (s *Service) include(ctx context.Context, target string, mode safemode.SafeMode) ([]byte, error) {
	if target == "" {
		return nil, diagram.BadRequest("textart", "!include without a target")
	}
	remote := isRemote(target)
	switch {
	case remote && !mode.AllowsRemoteFetch():
		return nil, diagram.PolicyViolation("textart", fmt.Sprintf("remote include %s is not permitted in %s mode", target, mode))
	case !remote && !mode.AllowsLocalFiles():
		return nil, diagram.PolicyViolation("textart", fmt.Sprintf("local include %s is not permitted in %s mode", target, mode))
	case s.resolver == nil:
		return nil, diagram.PolicyViolation("textart", "includes are disabled")
	}

	var (
		data []byte
		err  error
	)
	if remote {
		data, err = s.resolver.FetchRemote(ctx, target)
	} else {
		data, err = s.resolver.ReadLocal(ctx, target)
	}
	if err != nil {
		s.logger.Debug("include failed", "target", target, "error", err)
		return nil, diagram.BackendFailure("textart", "cannot resolve include "+target, err.Error(), err)
	}
	return data, nil
}

var _ diagram.Service = (*Service)(nil)
