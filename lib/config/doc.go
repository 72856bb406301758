// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for glyph.
//
// [Load] builds a [Config] in a fixed order:
//
//  1. .env files, which populate the process environment without
//     replacing variables that are already set.
//  2. [Default] values.
//  3. The YAML file named by --config or GLYPH_CONFIG, if any.
//     Unknown keys are errors.
//  4. GLYPH_* environment overrides (GLYPH_LISTEN, GLYPH_SAFE_MODE,
//     GLYPH_WORKERS, GLYPH_MERMAID_URL, ...).
//  5. ${HOME} and ${VAR:-default} expansion in path fields.
//  6. [Config.Validate], which reports every problem at once.
//
// This package depends on no other glyph packages except
// lib/safemode.
package config
