// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package diagram

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"
	"sync"
)

// identifierPattern is the canonical shape of a diagram type: the
// gateway matches request paths against registered identifiers
// exactly, so registration is where case and spelling are fixed.
var identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Entry describes one registered service and every identifier bound
// to it, in registration order.
type Entry struct {
	Identifiers []string
	Formats     []Format
	Variant     Variant
	Service     Service
}

// Registry binds diagram-type identifiers to services.
//
// Register and Seal run during single-threaded startup. Lookups after
// Seal read immutable maps and need no synchronization; Register
// after Seal is an error.
type Registry struct {
	mu       sync.Mutex
	sealed   bool
	services map[string]Service
	entries  []*Entry
}

// NewRegistry returns an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{services: make(map[string]Service)}
}

// Register binds each identifier to service. It fails without
// binding anything if identifiers is empty, any identifier is not a
// canonical lowercase token, any identifier is already bound (or
// repeated in the call), or the registry is sealed.
func (r *Registry) Register(service Service, identifiers ...string) error {
	if service == nil {
		return errors.New("registering nil service")
	}
	if len(identifiers) == 0 {
		return errors.New("registering service without identifiers")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("registering %q: registry is sealed", identifiers[0])
	}
	seen := make(map[string]bool, len(identifiers))
	for _, identifier := range identifiers {
		if !identifierPattern.MatchString(identifier) {
			return fmt.Errorf("diagram type %q: must match %s", identifier, identifierPattern)
		}
		if _, exists := r.services[identifier]; exists || seen[identifier] {
			return fmt.Errorf("diagram type %q is already registered", identifier)
		}
		seen[identifier] = true
	}

	for _, identifier := range identifiers {
		r.services[identifier] = service
	}
	r.entries = append(r.entries, &Entry{
		Identifiers: slices.Clone(identifiers),
		Formats:     slices.Clone(service.Formats()),
		Variant:     VariantOf(service),
		Service:     service,
	})
	return nil
}

// MustRegister is Register for startup code where a duplicate is a
// programming error.
func (r *Registry) MustRegister(service Service, identifiers ...string) {
	if err := r.Register(service, identifiers...); err != nil {
		panic("diagram: " + err.Error())
	}
}

// Seal makes the registry read-only. It is idempotent.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealed
}

// Lookup returns the service bound to identifier. Matching is exact
// and case-sensitive.
func (r *Registry) Lookup(identifier string) (Service, bool) {
	service, ok := r.services[identifier]
	return service, ok
}

// SupportedFormats returns the formats of the service bound to
// identifier, in the service's preference order.
func (r *Registry) SupportedFormats(identifier string) ([]Format, bool) {
	service, ok := r.services[identifier]
	if !ok {
		return nil, false
	}
	return slices.Clone(service.Formats()), true
}

// Identifiers returns every bound identifier, sorted.
func (r *Registry) Identifiers() []string {
	identifiers := make([]string, 0, len(r.services))
	for identifier := range r.services {
		identifiers = append(identifiers, identifier)
	}
	sort.Strings(identifiers)
	return identifiers
}

// Entries returns one Entry per registered service, in registration
// order.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	for i, entry := range r.entries {
		entries[i] = *entry
	}
	return entries
}

// Len returns the number of bound identifiers.
func (r *Registry) Len() int {
	return len(r.services)
}
