// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/commander"
	"github.com/bureau-foundation/glyph/lib/safemode"
)

// Dialect selects between a full Vega specification and the Vega-Lite
// shorthand. Both are rendered by the same family of vega-cli
// binaries (vg2* and vl2*).
type Dialect string

const (
	DialectVega     Dialect = "vega"
	DialectVegaLite Dialect = "vegalite"
)

// Vega renders Vega and Vega-Lite specifications.
//
// The configured binary is the SVG converter (vg2svg or vl2svg). The
// PNG and PDF converters are found beside it by replacing the "svg"
// suffix.
type Vega struct {
	base
	dialect Dialect
}

// NewVega returns a backend for dialect that runs binary, the
// converter for SVG output.
func NewVega(runner Runner, binary string, dialect Dialect) *Vega {
	return &Vega{
		base: base{
			name:    string(dialect),
			runner:  runner,
			binary:  binary,
			formats: []diagram.Format{diagram.FormatSVG, diagram.FormatPNG, diagram.FormatPDF},
		},
		dialect: dialect,
	}
}

// Convert checks the specification's url members against the safe
// mode and pipes it to the converter for request.Format.
func (v *Vega) Convert(ctx context.Context, request diagram.Request) (*diagram.Result, error) {
	if err := diagram.CheckFormat(v, request); err != nil {
		return nil, err
	}

	// Specifications are often hand-written with comments and
	// trailing commas; the CLI only accepts strict JSON.
	specification := jsonc.ToJSON(request.Source)
	var document any
	if err := json.Unmarshal(specification, &document); err != nil {
		return nil, diagram.BackendFailure(v.name,
			fmt.Sprintf("%s specification is not valid JSON", v.dialect), err.Error(), err)
	}
	if err := checkDataURLs(v.name, document, request.SafeMode); err != nil {
		return nil, err
	}

	result, err := v.execute(ctx, commander.Command{
		Name:  converterFor(v.binary, request.Format),
		Stdin: specification,
	})
	if err != nil {
		return nil, err
	}
	return diagram.NewResult(request.Format, result.Stdout), nil
}

// converterFor derives the converter for format from the configured
// SVG converter: /opt/vega/bin/vg2svg becomes /opt/vega/bin/vg2png.
func converterFor(svgBinary string, format diagram.Format) string {
	directory, name := filepath.Split(svgBinary)
	return directory + strings.TrimSuffix(name, "svg") + string(format)
}

// checkDataURLs walks the specification and applies the safe mode to
// every "url" member. At secure no url member is allowed, whatever its
// form; at safe only literal non-network references are. Inline data
// rows under "values" are not references and are not inspected.
func checkDataURLs(op string, node any, mode safemode.SafeMode) error {
	switch value := node.(type) {
	case map[string]any:
		for key, child := range value {
			switch key {
			case "url":
				if err := checkURLMember(op, child, mode); err != nil {
					return err
				}
				continue
			case "values":
				continue
			}
			if err := checkDataURLs(op, child, mode); err != nil {
				return err
			}
		}
	case []any:
		for _, child := range value {
			if err := checkDataURLs(op, child, mode); err != nil {
				return err
			}
		}
	}
	return nil
}

// vegaComputedReference holds the value-reference members whose result
// is only known at render time.
var vegaComputedReference = []string{"signal", "field", "expr", "scale", "band"}

// checkURLMember checks one "url" member: a literal string, an encode
// value reference such as {"value": "a.png"}, or a list of encode
// rules. References computed from signals, fields, or expressions may
// resolve to a remote location.
func checkURLMember(op string, member any, mode safemode.SafeMode) error {
	if !mode.AllowsLocalFiles() {
		return diagram.PolicyViolation(op, fmt.Sprintf("url members are not permitted in %s mode", mode))
	}
	switch value := member.(type) {
	case string:
		return checkDataURL(op, value, mode)
	case []any:
		for _, rule := range value {
			if err := checkURLMember(op, rule, mode); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		literal, isString := value["value"].(string)
		computed := !isString
		for _, key := range vegaComputedReference {
			if _, ok := value[key]; ok {
				computed = true
			}
		}
		if !computed {
			return checkDataURL(op, literal, mode)
		}
	}
	if !mode.AllowsRemoteFetch() {
		return diagram.PolicyViolation(op, fmt.Sprintf("computed url %v is not permitted in %s mode", member, mode))
	}
	return nil
}

func checkDataURL(op, reference string, mode safemode.SafeMode) error {
	if !mode.AllowsLocalFiles() {
		return diagram.PolicyViolation(op, fmt.Sprintf("data url %q is not permitted in %s mode", reference, mode))
	}
	if isRemoteReference(reference) && !mode.AllowsRemoteFetch() {
		return diagram.PolicyViolation(op, fmt.Sprintf("remote data url %q is not permitted in %s mode", reference, mode))
	}
	return nil
}

// isRemoteReference reports whether reference names a network
// resource rather than a local path.
func isRemoteReference(reference string) bool {
	lower := strings.ToLower(strings.TrimSpace(reference))
	return strings.HasPrefix(lower, "//") || strings.Contains(lower, "://")
}
