// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commander

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/glyph/lib/testutil"
)

// newTestCommander returns a Commander whose working directories are
// created under a test-owned root, so tests can assert cleanup.
func newTestCommander(t *testing.T, config Config) (*Commander, string) {
	t.Helper()
	root := t.TempDir()
	config.TempRoot = root
	return New(config), root
}

func requireEmptyDir(t *testing.T, directory string) {
	t.Helper()
	entries, err := os.ReadDir(directory)
	if err != nil {
		t.Fatalf("reading %s: %v", directory, err)
	}
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, entry := range entries {
			names[i] = entry.Name()
		}
		t.Fatalf("working directories left behind in %s: %v", directory, names)
	}
}

// --- Execute: success paths ---

func TestExecuteCapturesOutput(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "greet", `echo "hello $1"; echo "note" >&2`)
	commander, root := newTestCommander(t, Config{})

	result, err := commander.Execute(context.Background(), Command{
		Name: tool,
		Args: []string{"world; rm -rf /"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := string(result.Stdout); got != "hello world; rm -rf /\n" {
		t.Errorf("stdout = %q, want the argument echoed verbatim", got)
	}
	if got := string(result.Stderr); got != "note\n" {
		t.Errorf("stderr = %q, want %q", got, "note\n")
	}
	if result.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", result.ExitCode)
	}
	requireEmptyDir(t, root)
}

func TestExecuteStdin(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "upper", `tr a-z A-Z`)
	commander, _ := newTestCommander(t, Config{})

	result, err := commander.Execute(context.Background(), Command{
		Name:  tool,
		Stdin: []byte("digraph { a -> b }"),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := string(result.Stdout); got != "DIGRAPH { A -> B }" {
		t.Errorf("stdout = %q", got)
	}
}

func TestExecuteFilesAndCollect(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "convert", `tr a-z A-Z < "$1" > "$2"`)
	commander, root := newTestCommander(t, Config{})

	result, err := commander.Execute(context.Background(), Command{
		Name:    tool,
		Args:    []string{"in.txt", "out.txt"},
		Files:   map[string][]byte{"in.txt": []byte("hello")},
		Collect: []string{"out.txt"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := string(result.Files["out.txt"]); got != "HELLO" {
		t.Errorf("collected out.txt = %q, want %q", got, "HELLO")
	}
	requireEmptyDir(t, root)
}

func TestExecuteCreatesDirs(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "listdir", `test -d "$1" && ls -A "$1" | wc -l`)
	commander, root := newTestCommander(t, Config{})

	result, err := commander.Execute(context.Background(), Command{
		Name: tool,
		Args: []string{"files"},
		Dirs: []string{"files"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := strings.TrimSpace(string(result.Stdout)); got != "0" {
		t.Errorf("entries in created directory = %q, want 0", got)
	}
	requireEmptyDir(t, root)

	_, err = commander.Execute(context.Background(), Command{
		Name: tool,
		Dirs: []string{"../escape"},
	})
	if err == nil || !strings.Contains(err.Error(), "plain name") {
		t.Errorf("Dirs escaping the working directory: error = %v, want a plain name rejection", err)
	}
}

func TestExecuteMissingCollectFile(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "silent", `exit 0`)
	commander, _ := newTestCommander(t, Config{})

	_, err := commander.Execute(context.Background(), Command{
		Name:    tool,
		Collect: []string{"out.svg"},
	})
	if !errors.Is(err, ErrMissingOutput) {
		t.Fatalf("error = %v, want ErrMissingOutput", err)
	}
}

func TestExecuteEnvironment(t *testing.T) {
	t.Setenv("GLYPH_TEST_SECRET", "hunter2")
	tool := testutil.WriteExecutable(t, t.TempDir(), "env", `echo "secret=$GLYPH_TEST_SECRET"; echo "mode=$MODE"; echo "home=$HOME"; pwd`)
	commander, _ := newTestCommander(t, Config{})

	result, err := commander.Execute(context.Background(), Command{
		Name: tool,
		Env:  map[string]string{"MODE": "secure"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(result.Stdout)), "\n")
	if len(lines) != 4 {
		t.Fatalf("stdout lines = %q, want 4", lines)
	}
	if lines[0] != "secret=" {
		t.Errorf("parent environment leaked into child: %q", lines[0])
	}
	if lines[1] != "mode=secure" {
		t.Errorf("override not applied: %q", lines[1])
	}
	if home := strings.TrimPrefix(lines[2], "home="); home != lines[3] {
		t.Errorf("HOME = %q, want the working directory %q", home, lines[3])
	}
}

func TestExecuteTruncatesOutput(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "flood", `head -c 5000 /dev/zero; head -c 3000 /dev/zero >&2`)
	commander, _ := newTestCommander(t, Config{MaxOutput: 1024})

	result, err := commander.Execute(context.Background(), Command{Name: tool})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(result.Stdout) != 1024 || !result.StdoutTruncated {
		t.Errorf("stdout: len=%d truncated=%v, want 1024 and true", len(result.Stdout), result.StdoutTruncated)
	}
	if len(result.Stderr) != 1024 || !result.StderrTruncated {
		t.Errorf("stderr: len=%d truncated=%v, want 1024 and true", len(result.Stderr), result.StderrTruncated)
	}
}

// --- Execute: failure taxonomy ---

func TestExecuteNonZeroExit(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "broken", `echo "syntax error at line 3" >&2; exit 2`)
	commander, root := newTestCommander(t, Config{})

	result, err := commander.Execute(context.Background(), Command{Name: tool})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v (%T), want *ExitError", err, err)
	}
	if exitErr.ExitCode != 2 {
		t.Errorf("exit code = %d, want 2", exitErr.ExitCode)
	}
	if exitErr.Diagnostic() != "syntax error at line 3" {
		t.Errorf("Diagnostic() = %q", exitErr.Diagnostic())
	}
	if !strings.Contains(err.Error(), "syntax error at line 3") {
		t.Errorf("error = %q, want it to contain the first stderr line", err)
	}
	if result == nil || result.ExitCode != 2 {
		t.Errorf("result = %+v, want the partial result with exit code 2", result)
	}
	requireEmptyDir(t, root)
}

func TestExecuteDiagnosticFallsBackToStdout(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "loud", `echo "bad token"; exit 1`)
	commander, _ := newTestCommander(t, Config{})

	_, err := commander.Execute(context.Background(), Command{Name: tool})
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want *ExitError", err)
	}
	if exitErr.Diagnostic() != "bad token" {
		t.Errorf("Diagnostic() = %q, want stdout when stderr is empty", exitErr.Diagnostic())
	}
}

func TestExecuteMissingExecutable(t *testing.T) {
	commander, root := newTestCommander(t, Config{})

	_, err := commander.Execute(context.Background(), Command{Name: "glyph-no-such-tool-" + testutil.UniqueID("x")})
	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("error = %v (%T), want *LaunchError", err, err)
	}
	if launchErr.Op != "lookup" {
		t.Errorf("Op = %q, want lookup", launchErr.Op)
	}
	if !errors.Is(err, exec.ErrNotFound) {
		t.Errorf("error = %v, want it to wrap exec.ErrNotFound", err)
	}
	requireEmptyDir(t, root)
}

func TestExecuteNotExecutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho hi\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	commander, _ := newTestCommander(t, Config{})

	_, err := commander.Execute(context.Background(), Command{Name: path})
	var launchErr *LaunchError
	if !errors.As(err, &launchErr) {
		t.Fatalf("error = %v (%T), want *LaunchError", err, err)
	}
}

func TestExecuteTimeoutKillsProcessGroup(t *testing.T) {
	directory := t.TempDir()
	marker := filepath.Join(directory, "survived")
	// The background child would touch the marker after the timeout
	// if the group kill missed it.
	tool := testutil.WriteExecutable(t, directory, "slow",
		`(sleep 1; touch `+marker+`) & sleep 10`)
	commander, root := newTestCommander(t, Config{})

	start := time.Now()
	result, err := commander.Execute(context.Background(), Command{
		Name:    tool,
		Timeout: 100 * time.Millisecond,
	})
	elapsed := time.Since(start)

	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("error = %v (%T), want *TimeoutError", err, err)
	}
	if timeoutErr.Limit != 100*time.Millisecond {
		t.Errorf("Limit = %v, want 100ms", timeoutErr.Limit)
	}
	if result == nil {
		t.Error("timeout returned no partial result")
	}
	if elapsed > 5*time.Second {
		t.Errorf("Execute returned after %v, want well under the 10s sleep", elapsed)
	}
	requireEmptyDir(t, root)

	time.Sleep(1500 * time.Millisecond)
	if _, err := os.Stat(marker); err == nil {
		t.Error("background child survived the timeout kill")
	}
}

func TestExecuteCallerCancellation(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "slow", `sleep 10`)
	commander, root := newTestCommander(t, Config{Timeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := commander.Execute(ctx, Command{Name: tool})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		t.Error("caller cancellation reported as a timeout")
	}
	requireEmptyDir(t, root)
}

func TestExecuteRejectsEscapingFileNames(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "noop", `exit 0`)
	commander, _ := newTestCommander(t, Config{})

	for _, name := range []string{"../escape", "sub/file", "..", ""} {
		_, err := commander.Execute(context.Background(), Command{
			Name:  tool,
			Files: map[string][]byte{name: []byte("x")},
		})
		if err == nil || !strings.Contains(err.Error(), "plain name") {
			t.Errorf("Files[%q]: error = %v, want a plain name rejection", name, err)
		}
	}
}

func TestExecuteRejectsEmptyName(t *testing.T) {
	commander, _ := newTestCommander(t, Config{})
	if _, err := commander.Execute(context.Background(), Command{}); err == nil {
		t.Fatal("expected error for empty command name")
	}
}

// --- Isolation ---

func TestExecuteConcurrentIsolation(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "mark",
		`echo "$1" > marker; sleep 0.2; echo "$(cat marker) $MARK $(ls | wc -l)"; pwd`)
	commander, root := newTestCommander(t, Config{})

	const workers = 4
	type outcome struct {
		marker string
		output []string
		err    error
	}
	outcomes := make([]outcome, workers)

	var wait sync.WaitGroup
	for i := range workers {
		wait.Add(1)
		go func() {
			defer wait.Done()
			marker := testutil.UniqueID("marker")
			result, err := commander.Execute(context.Background(), Command{
				Name: tool,
				Args: []string{marker},
				Env:  map[string]string{"MARK": marker},
			})
			outcomes[i] = outcome{marker: marker, err: err}
			if err == nil {
				outcomes[i].output = strings.Split(strings.TrimSpace(string(result.Stdout)), "\n")
			}
		}()
	}
	wait.Wait()

	directories := make(map[string]bool)
	for _, outcome := range outcomes {
		if outcome.err != nil {
			t.Fatalf("Execute: %v", outcome.err)
		}
		if len(outcome.output) != 2 {
			t.Fatalf("output = %q, want two lines", outcome.output)
		}
		fields := strings.Fields(outcome.output[0])
		if len(fields) != 3 || fields[0] != outcome.marker || fields[1] != outcome.marker || fields[2] != "1" {
			t.Errorf("call %s observed %q, want its own marker, env, and a single file", outcome.marker, outcome.output[0])
		}
		if directories[outcome.output[1]] {
			t.Errorf("working directory %s shared between calls", outcome.output[1])
		}
		directories[outcome.output[1]] = true
	}
	requireEmptyDir(t, root)
}

// --- limitedBuffer ---

func TestLimitedBuffer(t *testing.T) {
	buffer := &limitedBuffer{limit: 4}
	for _, chunk := range []string{"ab", "cde", "fg"} {
		n, err := buffer.Write([]byte(chunk))
		if err != nil || n != len(chunk) {
			t.Fatalf("Write(%q) = (%d, %v), want full success", chunk, n, err)
		}
	}
	if !bytes.Equal(buffer.Bytes(), []byte("abcd")) {
		t.Errorf("Bytes() = %q, want %q", buffer.Bytes(), "abcd")
	}
	if !buffer.truncated {
		t.Error("truncated = false, want true")
	}

	unbounded := &limitedBuffer{}
	unbounded.Write(bytes.Repeat([]byte("x"), 10000))
	if len(unbounded.Bytes()) != 10000 || unbounded.truncated {
		t.Error("zero limit should not truncate")
	}
}
