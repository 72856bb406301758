// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
)

type failReader struct{}

func (failReader) Read([]byte) (int, error) { return 0, fmt.Errorf("simulated read failure") }

func TestReadLimited(t *testing.T) {
	t.Run("within limit", func(t *testing.T) {
		data, err := ReadLimited(strings.NewReader("12345"), 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(data) != "12345" {
			t.Fatalf("got %q, want %q", data, "12345")
		}
	})

	t.Run("over limit", func(t *testing.T) {
		_, err := ReadLimited(strings.NewReader("123456"), 5)
		if !errors.Is(err, ErrTooLarge) {
			t.Fatalf("error = %v, want ErrTooLarge", err)
		}
	})

	t.Run("read error propagates", func(t *testing.T) {
		if _, err := ReadLimited(failReader{}, 5); err == nil {
			t.Fatal("expected error from failing reader")
		}
	})
}

func TestReadResponse(t *testing.T) {
	data, err := ReadResponse(bytes.NewReader([]byte("<svg/>")))
	if err != nil || string(data) != "<svg/>" {
		t.Fatalf("ReadResponse = (%q, %v)", data, err)
	}
}

func TestErrorBody(t *testing.T) {
	if got := ErrorBody(strings.NewReader("  Parse error on line 2\n")); got != "Parse error on line 2" {
		t.Errorf("ErrorBody = %q", got)
	}
	if got := ErrorBody(failReader{}); got != "" {
		t.Errorf("ErrorBody(failing) = %q, want empty", got)
	}
	long := strings.Repeat("x", 20<<10)
	if got := ErrorBody(strings.NewReader(long)); len(got) != maxErrorBody {
		t.Errorf("ErrorBody kept %d bytes, want %d", len(got), maxErrorBody)
	}
}

func TestIsDialError(t *testing.T) {
	dial := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	read := &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}

	if !IsDialError(fmt.Errorf("post: %w", dial)) {
		t.Error("wrapped dial error not recognized")
	}
	if IsDialError(read) {
		t.Error("read error classified as dial error")
	}
	if !IsDialError(&net.DNSError{Err: "no such host", Name: "mermaid"}) {
		t.Error("DNS error not recognized")
	}
	if IsDialError(errors.New("boom")) || IsDialError(nil) {
		t.Error("unrelated error classified as dial error")
	}
}
