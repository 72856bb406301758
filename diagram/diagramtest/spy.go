// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package diagramtest provides a recording diagram.Service for tests
// of code that dispatches to backends.
package diagramtest

import (
	"context"
	"slices"
	"sync"

	"github.com/bureau-foundation/glyph/diagram"
)

// Spy is a diagram.Service that records every Convert call. By
// default it echoes the source back with the requested format's
// content type; set Respond to script other outcomes.
type Spy struct {
	FormatList []diagram.Format
	Respond    func(ctx context.Context, request diagram.Request) (*diagram.Result, error)

	mu    sync.Mutex
	calls []diagram.Request
}

// NewSpy returns a Spy producing the given formats.
func NewSpy(formats ...diagram.Format) *Spy {
	return &Spy{FormatList: formats}
}

func (s *Spy) Formats() []diagram.Format {
	return s.FormatList
}

func (s *Spy) Convert(ctx context.Context, request diagram.Request) (*diagram.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, request)
	s.mu.Unlock()

	if s.Respond != nil {
		return s.Respond(ctx, request)
	}
	if err := diagram.CheckFormat(s, request); err != nil {
		return nil, err
	}
	return diagram.NewResult(request.Format, slices.Clone(request.Source)), nil
}

// Calls returns a copy of the recorded requests.
func (s *Spy) Calls() []diagram.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// CallCount returns the number of Convert calls so far.
func (s *Spy) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var _ diagram.Service = (*Spy)(nil)
