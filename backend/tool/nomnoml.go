// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"regexp"
	"strings"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/commander"
	"github.com/bureau-foundation/glyph/lib/safemode"
)

const (
	nomnomlInput  = "diagram.noms"
	nomnomlOutput = "diagram.svg"
)

// nomnomlImportDirective matches an #import directive anywhere in the
// source.
var nomnomlImportDirective = regexp.MustCompile(`#import:[ \t]*([^\r\n]*)`)

// Nomnoml renders nomnoml UML sketches. The CLI resolves #import
// directives relative to the input file, so the source is written
// into the working directory rather than piped.
type Nomnoml struct {
	base
}

// NewNomnoml returns a Nomnoml backend that runs binary.
func NewNomnoml(runner Runner, binary string) *Nomnoml {
	return &Nomnoml{base{
		name:    "nomnoml",
		runner:  runner,
		binary:  binary,
		formats: []diagram.Format{diagram.FormatSVG},
	}}
}

// Convert writes request.Source to a file, runs the CLI on it, and
// collects the SVG it writes.
func (n *Nomnoml) Convert(ctx context.Context, request diagram.Request) (*diagram.Result, error) {
	if err := diagram.CheckFormat(n, request); err != nil {
		return nil, err
	}
	if request.SafeMode.AtLeast(safemode.Secure) {
		if target, found := nomnomlImport(request.Source); found {
			return nil, diagram.PolicyViolation(n.name,
				"#import of "+target+" is not permitted in secure mode")
		}
	}

	result, err := n.execute(ctx, commander.Command{
		Name:    n.binary,
		Args:    []string{nomnomlInput, nomnomlOutput},
		Files:   map[string][]byte{nomnomlInput: request.Source},
		Collect: []string{nomnomlOutput},
	})
	if err != nil {
		return nil, err
	}
	return diagram.NewResult(request.Format, result.Files[nomnomlOutput]), nil
}

// nomnomlImport returns the target of the first #import directive.
// The CLI expands directives wherever they appear, not only at the
// start of a line.
func nomnomlImport(source []byte) (string, bool) {
	match := nomnomlImportDirective.FindSubmatch(source)
	if match == nil {
		return "", false
	}
	return strings.TrimSpace(string(match[1])), true
}
