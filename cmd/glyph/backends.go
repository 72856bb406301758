// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bureau-foundation/glyph/diagram"
)

func newBackendsCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the diagram types this configuration serves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			logger, err := global.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			registry, closeCache, err := buildRegistry(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeCache()
			return writeBackends(cmd.OutOrStdout(), registry)
		},
	}
}

func writeBackends(output io.Writer, registry *diagram.Registry) error {
	writer := tabwriter.NewWriter(output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(writer, "TYPES\tVARIANT\tFORMATS")
	for _, entry := range registry.Entries() {
		formats := make([]string, len(entry.Formats))
		for i, format := range entry.Formats {
			formats[i] = string(format)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n",
			strings.Join(entry.Identifiers, ", "), entry.Variant, strings.Join(formats, ", "))
	}
	return writer.Flush()
}
