// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commander

import (
	"bytes"
	"errors"
	"fmt"
	"time"
)

// ErrMissingOutput is wrapped by Execute when the tool exited zero
// but a file listed in Command.Collect does not exist.
var ErrMissingOutput = errors.New("expected output file was not produced")

// LaunchError reports that the executable could not be run at all:
// it is missing from PATH, not executable, or the fork/exec failed.
type LaunchError struct {
	// Name is the executable name as given in the Command.
	Name string

	// Op is "lookup" or "start".
	Op string

	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launching %s: %s: %v", e.Name, e.Op, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// TimeoutError reports that the process group was killed because the
// time bound expired. Result holds whatever output was captured
// before the kill.
type TimeoutError struct {
	Name   string
	Limit  time.Duration
	Result *Result
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Name, e.Limit)
}

// Timeout reports true, matching the net.Error convention.
func (e *TimeoutError) Timeout() bool { return true }

// ExitError reports that the tool ran to completion and exited with a
// non-zero status (or was killed by a signal it did not get from us).
type ExitError struct {
	Name     string
	ExitCode int
	Result   *Result
}

func (e *ExitError) Error() string {
	message := fmt.Sprintf("%s exited with status %d", e.Name, e.ExitCode)
	if line := firstLine(e.Stderr()); line != "" {
		message += ": " + line
	}
	return message
}

// Stderr returns the captured standard error of the failed process.
func (e *ExitError) Stderr() []byte {
	if e.Result == nil {
		return nil
	}
	return e.Result.Stderr
}

// Diagnostic returns the tool's own explanation of the failure:
// stderr if it wrote any, otherwise stdout. Several diagram tools
// report syntax errors on stdout.
func (e *ExitError) Diagnostic() string {
	if e.Result == nil {
		return ""
	}
	if text := bytes.TrimSpace(e.Result.Stderr); len(text) > 0 {
		return string(text)
	}
	return string(bytes.TrimSpace(e.Result.Stdout))
}

func firstLine(data []byte) string {
	data = bytes.TrimSpace(data)
	if index := bytes.IndexByte(data, '\n'); index >= 0 {
		data = data[:index]
	}
	return string(bytes.TrimSpace(data))
}
