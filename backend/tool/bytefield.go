// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/commander"
)

// Bytefield renders byte-field (packet layout) diagrams.
type Bytefield struct {
	base
}

// NewBytefield returns a Bytefield backend that runs binary.
func NewBytefield(runner Runner, binary string) *Bytefield {
	return &Bytefield{base{
		name:    "bytefield",
		runner:  runner,
		binary:  binary,
		formats: []diagram.Format{diagram.FormatSVG},
	}}
}

// Convert pipes request.Source to bytefield-svg and returns its stdout.
func (b *Bytefield) Convert(ctx context.Context, request diagram.Request) (*diagram.Result, error) {
	if err := diagram.CheckFormat(b, request); err != nil {
		return nil, err
	}
	result, err := b.execute(ctx, commander.Command{
		Name:  b.binary,
		Stdin: request.Source,
	})
	if err != nil {
		return nil, err
	}
	return diagram.NewResult(request.Format, result.Stdout), nil
}
