// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commander

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/glyph/lib/clock"
)

const (
	// DefaultTimeout bounds a call whose Command.Timeout is zero and
	// whose Commander was configured without one.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxOutput bounds each of stdout and stderr: 16 MiB.
	DefaultMaxOutput = 16 << 20

	// waitDelay bounds how long Wait keeps draining pipes after the
	// process group is killed. A descendant that escaped the group
	// and inherited our pipes cannot hold the call open past this.
	waitDelay = 2 * time.Second
)

// Config configures a Commander.
type Config struct {
	// Timeout applies to commands that do not set their own.
	// Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxOutput caps the captured size of stdout and of stderr
	// separately. Zero means DefaultMaxOutput.
	MaxOutput int

	// TempRoot is the directory under which per-call working
	// directories are created. Empty means os.TempDir().
	TempRoot string

	Logger *slog.Logger
	Clock  clock.Clock
}

// Command describes one subprocess invocation. It is built fresh for
// every call and never shared.
type Command struct {
	// Name is the executable: a bare name resolved through PATH, or
	// an absolute path.
	Name string

	// Args are passed to the executable as discrete tokens.
	Args []string

	// Env holds variables added on top of the sanitized environment.
	Env map[string]string

	// Stdin is written to the child's standard input. Nil means
	// /dev/null.
	Stdin []byte

	// Files are written into the working directory before the
	// process starts. Keys are plain file names.
	Files map[string][]byte

	// Dirs are created empty inside the working directory before the
	// process starts. Entries are plain names, like Files keys.
	Dirs []string

	// Collect names files the tool is expected to write into the
	// working directory. They are read back into Result.Files before
	// the directory is removed.
	Collect []string

	// Timeout overrides the Commander's default for this call.
	Timeout time.Duration
}

// Result is the outcome of a process that ran.
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte

	StdoutTruncated bool
	StderrTruncated bool

	// Files holds the contents of Command.Collect entries that the
	// tool produced.
	Files map[string][]byte

	Duration time.Duration
}

// Commander executes Commands. The zero value is not usable; call New.
type Commander struct {
	timeout   time.Duration
	maxOutput int
	tempRoot  string
	logger    *slog.Logger
	clock     clock.Clock
}

// New returns a Commander with config's defaults filled in.
func New(config Config) *Commander {
	commander := &Commander{
		timeout:   config.Timeout,
		maxOutput: config.MaxOutput,
		tempRoot:  config.TempRoot,
		logger:    config.Logger,
		clock:     config.Clock,
	}
	if commander.timeout <= 0 {
		commander.timeout = DefaultTimeout
	}
	if commander.maxOutput <= 0 {
		commander.maxOutput = DefaultMaxOutput
	}
	if commander.tempRoot == "" {
		commander.tempRoot = os.TempDir()
	}
	if commander.logger == nil {
		commander.logger = slog.Default()
	}
	if commander.clock == nil {
		commander.clock = clock.Real()
	}
	return commander
}

// Timeout returns the default time bound applied to commands that do
// not set their own.
func (c *Commander) Timeout() time.Duration {
	return c.timeout
}

// Execute runs command and waits for it to finish.
//
// On success the error is nil and Result.ExitCode is zero. For an
// *ExitError or *TimeoutError the Result is returned alongside the
// error so callers can inspect partial output. For a *LaunchError, a
// cancelled ctx, or invalid Command fields the Result is nil.
func (c *Commander) Execute(ctx context.Context, command Command) (*Result, error) {
	if command.Name == "" {
		return nil, errors.New("commander: command name is required")
	}
	if err := checkFileNames(command); err != nil {
		return nil, err
	}

	path, err := exec.LookPath(command.Name)
	if err != nil {
		return nil, &LaunchError{Name: command.Name, Op: "lookup", Err: err}
	}

	timeout := command.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}

	workDir, err := os.MkdirTemp(c.tempRoot, "glyph-exec-*")
	if err != nil {
		return nil, fmt.Errorf("creating working directory for %s: %w", command.Name, err)
	}
	defer func() {
		if removeErr := os.RemoveAll(workDir); removeErr != nil {
			c.logger.Warn("removing command working directory failed",
				"name", command.Name, "dir", workDir, "error", removeErr)
		}
	}()

	for _, name := range command.Dirs {
		if err := os.Mkdir(filepath.Join(workDir, name), 0o700); err != nil {
			return nil, fmt.Errorf("creating %s for %s: %w", name, command.Name, err)
		}
	}
	for name, data := range command.Files {
		if err := os.WriteFile(filepath.Join(workDir, name), data, 0o600); err != nil {
			return nil, fmt.Errorf("writing %s for %s: %w", name, command.Name, err)
		}
	}

	environment, err := buildEnvironment(workDir, command.Env)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", command.Name, err)
	}

	runContext, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runContext, path, command.Args...)
	cmd.Dir = workDir
	cmd.Env = environment
	if command.Stdin != nil {
		cmd.Stdin = bytes.NewReader(command.Stdin)
	}
	stdout := &limitedBuffer{limit: c.maxOutput}
	stderr := &limitedBuffer{limit: c.maxOutput}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	// The child leads its own process group so the kill below reaches
	// everything it spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
	}
	cmd.WaitDelay = waitDelay

	start := c.clock.Now()
	if err := cmd.Start(); err != nil {
		return nil, &LaunchError{Name: command.Name, Op: "start", Err: err}
	}
	waitErr := cmd.Wait()

	result := &Result{
		ExitCode:        cmd.ProcessState.ExitCode(),
		Stdout:          stdout.Bytes(),
		Stderr:          stderr.Bytes(),
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
		Duration:        c.clock.Since(start),
	}

	c.logger.Debug("command finished",
		"name", command.Name,
		"exit_code", result.ExitCode,
		"duration", result.Duration,
		"stdout_bytes", len(result.Stdout),
		"stderr_bytes", len(result.Stderr),
	)

	if waitErr != nil && runContext.Err() != nil {
		// The caller's own context ending is cancellation, not a
		// timeout, even if that context carried a deadline.
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", command.Name, ctx.Err())
		}
		return result, &TimeoutError{Name: command.Name, Limit: timeout, Result: result}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, fmt.Errorf("waiting for %s: %w", command.Name, waitErr)
		}
		return result, &ExitError{Name: command.Name, ExitCode: result.ExitCode, Result: result}
	}

	if len(command.Collect) > 0 {
		result.Files = make(map[string][]byte, len(command.Collect))
		for _, name := range command.Collect {
			data, err := os.ReadFile(filepath.Join(workDir, name))
			if errors.Is(err, fs.ErrNotExist) {
				return result, fmt.Errorf("%s: %s: %w", command.Name, name, ErrMissingOutput)
			}
			if err != nil {
				return nil, fmt.Errorf("reading %s from %s: %w", name, command.Name, err)
			}
			result.Files[name] = data
		}
	}

	return result, nil
}

// checkFileNames rejects Files, Dirs, and Collect entries that are
// not plain names inside the working directory.
func checkFileNames(command Command) error {
	check := func(name string) error {
		if name == "" || name == "." || name == ".." || strings.ContainsAny(name, "/\x00") {
			return fmt.Errorf("commander: %s: file name %q must be a plain name in the working directory", command.Name, name)
		}
		return nil
	}
	for name := range command.Files {
		if err := check(name); err != nil {
			return err
		}
	}
	for _, name := range command.Dirs {
		if err := check(name); err != nil {
			return err
		}
	}
	for _, name := range command.Collect {
		if err := check(name); err != nil {
			return err
		}
	}
	return nil
}
