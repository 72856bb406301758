// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/lib/commander"
)

// Runner executes external commands. *commander.Commander is the
// production implementation.
type Runner interface {
	Execute(ctx context.Context, command commander.Command) (*commander.Result, error)
}

var _ Runner = (*commander.Commander)(nil)

// Binaries maps a tool key to the executable name or path used for it.
// Missing keys fall back to DefaultBinaries.
type Binaries map[string]string

// DefaultBinaries are the executable names looked up on PATH when the
// configuration does not override them.
var DefaultBinaries = Binaries{
	"dot":       "dot",
	"erd":       "erd",
	"svgbob":    "svgbob",
	"nomnoml":   "nomnoml",
	"vega":      "vg2svg",
	"vegalite":  "vl2svg",
	"wavedrom":  "wavedrom-cli",
	"bytefield": "bytefield-svg",
}

func (b Binaries) lookup(key string) string {
	if binary := b[key]; binary != "" {
		return binary
	}
	return DefaultBinaries[key]
}

// Config configures Register.
type Config struct {
	Runner   Runner
	Binaries Binaries
	Logger   *slog.Logger
}

// Register adds every process-backed backend to registry.
func Register(registry *diagram.Registry, config Config) error {
	if config.Runner == nil {
		return errors.New("tool: runner is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	binaries := config.Binaries

	registrations := []struct {
		service     diagram.Service
		identifiers []string
	}{
		{NewGraphviz(config.Runner, binaries.lookup("dot")), []string{"graphviz", "dot"}},
		{NewErd(config.Runner, binaries.lookup("erd")), []string{"erd"}},
		{NewSvgbob(config.Runner, binaries.lookup("svgbob")), []string{"svgbob"}},
		{NewNomnoml(config.Runner, binaries.lookup("nomnoml")), []string{"nomnoml"}},
		{NewVega(config.Runner, binaries.lookup("vega"), DialectVega), []string{"vega"}},
		{NewVega(config.Runner, binaries.lookup("vegalite"), DialectVegaLite), []string{"vegalite"}},
		{NewWavedrom(config.Runner, binaries.lookup("wavedrom")), []string{"wavedrom"}},
		{NewBytefield(config.Runner, binaries.lookup("bytefield")), []string{"bytefield"}},
	}
	for _, registration := range registrations {
		if err := registry.Register(registration.service, registration.identifiers...); err != nil {
			return fmt.Errorf("tool: %w", err)
		}
		logger.Debug("registered process backend", "types", registration.identifiers)
	}
	return nil
}

// base carries what every process-backed backend has in common.
type base struct {
	name    string
	runner  Runner
	binary  string
	formats []diagram.Format
}

func (b *base) Formats() []diagram.Format { return b.formats }

func (b *base) Variant() diagram.Variant { return diagram.VariantProcess }

// execute runs command and classifies any failure.
func (b *base) execute(ctx context.Context, command commander.Command) (*commander.Result, error) {
	result, err := b.runner.Execute(ctx, command)
	if err == nil {
		return result, nil
	}
	return nil, classify(b.name, err)
}

// classify maps commander errors to the diagram taxonomy.
func classify(op string, err error) error {
	var exitErr *commander.ExitError
	if errors.As(err, &exitErr) {
		return diagram.BackendFailure(op,
			fmt.Sprintf("%s could not render the diagram", op),
			exitErr.Diagnostic(), err)
	}
	if errors.Is(err, commander.ErrMissingOutput) {
		return diagram.BackendFailure(op,
			fmt.Sprintf("%s produced no output", op), "", err)
	}
	return diagram.ExecutionFault(op, err)
}

// optionValuePattern admits the characters diagram options need
// (colors, font names, numbers) and nothing that starts like a flag.
var optionValuePattern = regexp.MustCompile(`^[A-Za-z0-9#.][A-Za-z0-9 #.,%_+-]*$`)

// optionArguments turns the request options named in flags into
// "--flag value" pairs, in sorted option order so the argument
// vector is deterministic. Unknown options are ignored.
func optionArguments(op string, request diagram.Request, flags map[string]string) ([]string, error) {
	names := make([]string, 0, len(flags))
	for name := range flags {
		if _, ok := request.Options[name]; ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var arguments []string
	for _, name := range names {
		value := request.Options[name]
		if !optionValuePattern.MatchString(value) {
			return nil, diagram.BadRequest(op, "invalid value %q for option %s", value, name)
		}
		arguments = append(arguments, flags[name], value)
	}
	return arguments, nil
}

// chooseOption validates an enumerated option. Empty means absent.
func chooseOption(op string, request diagram.Request, name string, allowed []string) (string, error) {
	value := request.Option(name)
	if value == "" {
		return "", nil
	}
	for _, candidate := range allowed {
		if value == candidate {
			return value, nil
		}
	}
	return "", diagram.BadRequest(op, "invalid value %q for option %s", value, name)
}
