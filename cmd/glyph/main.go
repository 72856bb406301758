// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/glyph/lib/config"
	"github.com/bureau-foundation/glyph/lib/process"
	"github.com/bureau-foundation/glyph/lib/safemode"
	"github.com/bureau-foundation/glyph/lib/version"
)

func main() {
	process.Run(func(ctx context.Context) error {
		return newRootCommand().ExecuteContext(ctx)
	})
}

// globalOptions are the flags shared by every subcommand.
type globalOptions struct {
	configPath string
	safeMode   string
	logLevel   string
	logFormat  string
}

func newRootCommand() *cobra.Command {
	options := &globalOptions{}
	root := &cobra.Command{
		Use:           "glyph",
		Short:         "Render diagrams from text",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	options.register(root.PersistentFlags())

	root.AddCommand(
		newServeCommand(options),
		newRenderCommand(options),
		newBackendsCommand(options),
		newVersionCommand(),
	)
	return root
}

func (o *globalOptions) register(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", "", "YAML configuration file (default: $GLYPH_CONFIG)")
	flags.StringVar(&o.safeMode, "safe-mode", "", "override the configured safe mode (unsafe, safe, secure)")
	flags.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&o.logFormat, "log-format", "json", "log format (json, text)")
}

// load reads the configuration and applies the global flag overrides.
func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.safeMode != "" {
		mode, ok := safemode.Lookup(o.safeMode)
		if !ok {
			return nil, fmt.Errorf("--safe-mode: unknown safe mode %q (want unsafe, safe, or secure)", o.safeMode)
		}
		cfg.SafeMode = mode
	}
	return cfg, nil
}

func (o *globalOptions) logger(output io.Writer) (*slog.Logger, error) {
	return newLogger(output, o.logLevel, o.logFormat)
}

func newLogger(output io.Writer, level, format string) (*slog.Logger, error) {
	var slogLevel slog.Level
	if err := slogLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("--log-level: %w", err)
	}
	handlerOptions := &slog.HandlerOptions{Level: slogLevel}
	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(output, handlerOptions)), nil
	case "text":
		return slog.New(slog.NewTextHandler(output, handlerOptions)), nil
	default:
		return nil, fmt.Errorf("--log-format: unknown format %q (want json or text)", format)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "glyph %s\n", version.Full())
			return nil
		},
	}
}
