// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package diagram

import (
	"context"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"SVG":   FormatSVG,
		" png ": FormatPNG,
		"jpg":   FormatJPEG,
		"JPEG":  FormatJPEG,
		"xyz":   Format("xyz"),
	}
	for input, want := range tests {
		if got := ParseFormat(input); got != want {
			t.Errorf("ParseFormat(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestContentType(t *testing.T) {
	if got := FormatSVG.ContentType(); got != "image/svg+xml" {
		t.Errorf("svg content type = %q", got)
	}
	if got := Format("xyz").ContentType(); got != "application/octet-stream" {
		t.Errorf("unknown content type = %q", got)
	}
}

func TestNegotiate(t *testing.T) {
	supported := []Format{FormatSVG, FormatPNG, FormatTXT}
	tests := []struct {
		accept string
		want   Format
		ok     bool
	}{
		{"", FormatSVG, true},
		{"*/*", FormatSVG, true},
		{"image/png", FormatPNG, true},
		{"application/pdf, image/png;q=0.8", FormatPNG, true},
		{"image/png;q=0, image/svg+xml", FormatSVG, true},
		{"image/*", FormatSVG, true},
		{"text/*", FormatTXT, true},
		{"application/pdf", "", false},
		{"not a media type", "", false},
	}
	for _, test := range tests {
		got, ok := Negotiate(test.accept, supported)
		if got != test.want || ok != test.ok {
			t.Errorf("Negotiate(%q) = (%q, %v), want (%q, %v)", test.accept, got, ok, test.want, test.ok)
		}
	}
	if _, ok := Negotiate("*/*", nil); ok {
		t.Error("Negotiate with no supported formats succeeded")
	}
}

type fixedService struct{ formats []Format }

func (s fixedService) Formats() []Format { return s.formats }

func (s fixedService) Convert(context.Context, Request) (*Result, error) { return nil, nil }

func TestCheckFormat(t *testing.T) {
	service := fixedService{formats: []Format{FormatSVG}}
	if err := CheckFormat(service, Request{Type: "t", Format: FormatSVG}); err != nil {
		t.Errorf("CheckFormat(svg) = %v", err)
	}
	err := CheckFormat(service, Request{Type: "t", Format: FormatPNG})
	if !IsKind(err, KindBadRequest) {
		t.Errorf("CheckFormat(png) = %v, want bad_request", err)
	}
}
