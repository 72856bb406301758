// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bureau-foundation/glyph/diagram"
	"github.com/bureau-foundation/glyph/gateway"
	"github.com/bureau-foundation/glyph/lib/config"
	"github.com/bureau-foundation/glyph/lib/netutil"
)

type renderOptions struct {
	diagramType string
	format      string
	output      string
	encode      bool
	options     map[string]string
}

func newRenderCommand(global *globalOptions) *cobra.Command {
	options := &renderOptions{}
	cmd := &cobra.Command{
		Use:   "render [file]",
		Short: "Convert one diagram without starting the server",
		Long: `Convert one diagram through the configured backends and write the
result to --output or stdout. The source is read from file, or from
stdin when no file is given.

With --encode the source is instead printed in the compressed form
accepted by GET /{type}/{format}/{encoded}.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := readSource(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			if options.encode {
				encoded, err := gateway.EncodeSource(source)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), encoded)
				return nil
			}
			if options.diagramType == "" {
				return errors.New("--type is required")
			}

			cfg, err := global.load()
			if err != nil {
				return err
			}
			logger, err := global.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return render(cmd.Context(), cfg, logger, options, source, cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&options.diagramType, "type", "t", "", "diagram type (see glyph backends)")
	flags.StringVarP(&options.format, "format", "f", "svg", "output format")
	flags.StringVarP(&options.output, "output", "o", "", "output file (default: stdout)")
	flags.BoolVar(&options.encode, "encode", false, "print the source encoded for a GET request URL")
	flags.StringToStringVar(&options.options, "option", nil, "backend option as name=value (repeatable)")
	return cmd
}

// maxSourceSize bounds sources read from files or stdin.
const maxSourceSize = 16 << 20

func readSource(stdin io.Reader, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return netutil.ReadLimited(stdin, maxSourceSize)
	}
	file, err := os.Open(args[0])
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return netutil.ReadLimited(file, maxSourceSize)
}

func render(ctx context.Context, cfg *config.Config, logger *slog.Logger, options *renderOptions, source []byte, stdout io.Writer) error {
	registry, closeCache, err := buildRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()
	registry.Seal()

	service, ok := registry.Lookup(options.diagramType)
	if !ok {
		return fmt.Errorf("unknown diagram type %q; must be one of %s",
			options.diagramType, strings.Join(registry.Identifiers(), ", "))
	}

	requestOptions := make(map[string]string, len(options.options))
	for name, value := range options.options {
		requestOptions[strings.ToLower(name)] = value
	}
	request := diagram.Request{
		Type:     options.diagramType,
		Format:   diagram.ParseFormat(options.format),
		Source:   source,
		SafeMode: cfg.SafeMode,
		Options:  requestOptions,
	}
	if err := diagram.CheckFormat(service, request); err != nil {
		return err
	}

	result, err := service.Convert(ctx, request)
	if err != nil {
		if typed, ok := diagram.AsError(err); ok && typed.Detail != "" {
			return fmt.Errorf("%s: %s\n%s", options.diagramType, typed.Message, typed.Detail)
		}
		return err
	}

	if options.output == "" {
		_, err = stdout.Write(result.Data)
		return err
	}
	return os.WriteFile(options.output, result.Data, 0o644)
}
