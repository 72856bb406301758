// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/commander"
)

const wavedromInput = "diagram.json5"

// Wavedrom renders digital timing diagrams with wavedrom-cli, which
// only reads and writes named files.
type Wavedrom struct {
	base
}

// NewWavedrom returns a Wavedrom backend that runs binary.
func NewWavedrom(runner Runner, binary string) *Wavedrom {
	return &Wavedrom{base{
		name:    "wavedrom",
		runner:  runner,
		binary:  binary,
		formats: []diagram.Format{diagram.FormatSVG, diagram.FormatPNG},
	}}
}

// Convert writes request.Source to a file and collects the image the
// CLI renders from it.
func (w *Wavedrom) Convert(ctx context.Context, request diagram.Request) (*diagram.Result, error) {
	if err := diagram.CheckFormat(w, request); err != nil {
		return nil, err
	}
	output := "diagram." + string(request.Format)
	flag := "-s"
	if request.Format == diagram.FormatPNG {
		flag = "-p"
	}
	result, err := w.execute(ctx, commander.Command{
		Name:    w.binary,
		Args:    []string{"-i", wavedromInput, flag, output},
		Files:   map[string][]byte{wavedromInput: request.Source},
		Collect: []string{output},
	})
	if err != nil {
		return nil, err
	}
	return diagram.NewResult(request.Format, result.Files[output]), nil
}
