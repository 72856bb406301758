// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/commander"
)

var erdEdges = []string{"compound", "noedge", "ortho", "poly", "spline"}

// Erd renders entity-relationship diagrams with the erd binary.
type Erd struct {
	base
}

// NewErd returns an Erd backend that runs binary.
func NewErd(runner Runner, binary string) *Erd {
	return &Erd{base{
		name:    "erd",
		runner:  runner,
		binary:  binary,
		formats: []diagram.Format{diagram.FormatSVG, diagram.FormatPNG, diagram.FormatPDF, diagram.FormatJPEG},
	}}
}

// Convert pipes request.Source to erd and returns its stdout.
func (e *Erd) Convert(ctx context.Context, request diagram.Request) (*diagram.Result, error) {
	if err := diagram.CheckFormat(e, request); err != nil {
		return nil, err
	}

	// erd spells jpeg the short way.
	format := string(request.Format)
	if request.Format == diagram.FormatJPEG {
		format = "jpg"
	}
	arguments := []string{"-f", format}

	edge, err := chooseOption(e.name, request, "edge", erdEdges)
	if err != nil {
		return nil, err
	}
	if edge != "" {
		arguments = append(arguments, "-e", edge)
	}

	result, err := e.execute(ctx, commander.Command{
		Name:  e.binary,
		Args:  arguments,
		Stdin: request.Source,
	})
	if err != nil {
		return nil, err
	}
	return diagram.NewResult(request.Format, result.Stdout), nil
}
