// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/commander"
)

// svgbobFlags maps diagram options to svgbob command-line flags.
var svgbobFlags = map[string]string{
	"background":   "--background",
	"fill-color":   "--fill-color",
	"font-family":  "--font-family",
	"font-size":    "--font-size",
	"scale":        "--scale",
	"stroke-width": "--stroke-width",
}

// Svgbob converts ASCII art to SVG.
type Svgbob struct {
	base
}

// NewSvgbob returns a Svgbob backend that runs binary.
func NewSvgbob(runner Runner, binary string) *Svgbob {
	return &Svgbob{base{
		name:    "svgbob",
		runner:  runner,
		binary:  binary,
		formats: []diagram.Format{diagram.FormatSVG},
	}}
}

// Convert pipes request.Source to svgbob with the flags mapped from
// request.Options.
func (s *Svgbob) Convert(ctx context.Context, request diagram.Request) (*diagram.Result, error) {
	if err := diagram.CheckFormat(s, request); err != nil {
		return nil, err
	}
	arguments, err := optionArguments(s.name, request, svgbobFlags)
	if err != nil {
		return nil, err
	}
	result, err := s.execute(ctx, commander.Command{
		Name:  s.binary,
		Args:  arguments,
		Stdin: request.Source,
	})
	if err != nil {
		return nil, err
	}
	return diagram.NewResult(request.Format, result.Stdout), nil
}
