// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/glyph/diagram"
)

// Companion describes a kind of companion service: the diagram types
// it serves and the formats it produces.
type Companion struct {
	Key     string
	Types   []string
	Formats []diagram.Format
}

// Companions lists every companion glyph knows how to talk to, keyed
// by the name used in configuration.
var Companions = []Companion{
	{
		Key:     "mermaid",
		Types:   []string{"mermaid"},
		Formats: []diagram.Format{diagram.FormatSVG, diagram.FormatPNG},
	},
	{
		Key:     "bpmn",
		Types:   []string{"bpmn"},
		Formats: []diagram.Format{diagram.FormatSVG},
	},
	{
		Key:     "excalidraw",
		Types:   []string{"excalidraw"},
		Formats: []diagram.Format{diagram.FormatSVG},
	},
	{
		Key:     "blockdiag",
		Types:   []string{"blockdiag", "seqdiag", "actdiag", "nwdiag", "packetdiag", "rackdiag"},
		Formats: []diagram.Format{diagram.FormatSVG, diagram.FormatPNG, diagram.FormatPDF},
	},
	{
		Key:     "plantuml",
		Types:   []string{"plantuml", "c4plantuml"},
		Formats: []diagram.Format{diagram.FormatSVG, diagram.FormatPNG, diagram.FormatPDF, diagram.FormatTXT, diagram.FormatUTXT},
	},
}

// Register adds a Service for every companion that has an endpoint
// with a URL. Companions without one are skipped: their diagram types
// are simply not served.
func Register(registry *diagram.Registry, endpoints map[string]Endpoint, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	known := make(map[string]bool, len(Companions))
	for _, companion := range Companions {
		known[companion.Key] = true
		endpoint, ok := endpoints[companion.Key]
		if !ok || endpoint.URL == "" {
			logger.Debug("companion not configured", "companion", companion.Key)
			continue
		}
		service, err := New(companion.Key, endpoint, companion.Formats, logger)
		if err != nil {
			return err
		}
		if err := registry.Register(service, companion.Types...); err != nil {
			return fmt.Errorf("remote %s: %w", companion.Key, err)
		}
		logger.Info("registered companion", "companion", companion.Key, "url", endpoint.URL, "types", companion.Types)
	}
	for key := range endpoints {
		if !known[key] {
			return fmt.Errorf("remote: unknown companion %q", key)
		}
	}
	return nil
}
