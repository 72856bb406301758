// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package safemode

import (
	"fmt"
	"strings"
)

// SafeMode is an ordered trust level. Larger values are stricter.
type SafeMode int

const (
	// Unsafe permits local file reads and remote fetches referenced
	// from inside the diagram source.
	Unsafe SafeMode = 0

	// Safe permits local file reads but not remote fetches.
	Safe SafeMode = 1

	// Secure permits neither.
	Secure SafeMode = 2
)

// Header is the HTTP header that carries a per-request safe mode,
// both on inbound requests and on calls to companion services.
const Header = "Glyph-Safe-Mode"

// names is indexed by SafeMode value.
var names = [...]string{
	Unsafe: "unsafe",
	Safe:   "safe",
	Secure: "secure",
}

// Lookup parses value case-insensitively after trimming surrounding
// whitespace. The boolean is false for blank or unrecognized input;
// callers that need "no policy resolved" as a distinct state use
// this instead of Resolve.
func Lookup(value string) (SafeMode, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	for mode, name := range names {
		if strings.EqualFold(value, name) {
			return SafeMode(mode), true
		}
	}
	return 0, false
}

// Resolve parses value like Lookup and returns fallback when nothing
// matched. It never fails.
func Resolve(value string, fallback SafeMode) SafeMode {
	if mode, ok := Lookup(value); ok {
		return mode
	}
	return fallback
}

// Stricter returns whichever of a and b is more restrictive.
func Stricter(a, b SafeMode) SafeMode {
	if a > b {
		return a
	}
	return b
}

// AtLeast reports whether m is at least as strict as other.
func (m SafeMode) AtLeast(other SafeMode) bool {
	return m >= other
}

// AllowsLocalFiles reports whether diagram sources may read local
// filesystem paths at this level.
func (m SafeMode) AllowsLocalFiles() bool {
	return m <= Safe
}

// AllowsRemoteFetch reports whether diagram sources may fetch remote
// network resources at this level.
func (m SafeMode) AllowsRemoteFetch() bool {
	return m <= Unsafe
}

// Valid reports whether m is one of the three defined levels.
func (m SafeMode) Valid() bool {
	return m >= Unsafe && m <= Secure
}

// String returns the lowercase name of the level.
func (m SafeMode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("safemode(%d)", int(m))
	}
	return names[m]
}

// MarshalText implements encoding.TextMarshaler.
func (m SafeMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid safe mode %d", int(m))
	}
	return []byte(names[m]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unlike Resolve,
// it rejects unknown values.
func (m *SafeMode) UnmarshalText(text []byte) error {
	mode, ok := Lookup(string(text))
	if !ok {
		return fmt.Errorf("unknown safe mode %q (want unsafe, safe, or secure)", string(text))
	}
	*m = mode
	return nil
}
