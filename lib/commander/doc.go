// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commander runs external rendering tools as supervised
// subprocesses.
//
// Every call to [Commander.Execute] gets:
//
//   - A dedicated working directory created under the configured
//     temp root and removed on every exit path. Relative file names
//     in [Command.Files], [Command.Collect], and the argument list
//     resolve inside it.
//   - A time bound. The child runs in its own process group; when
//     the deadline passes or the caller's context is cancelled, the
//     whole group receives SIGKILL so grandchildren (a node runtime
//     spawned by a wrapper script, for instance) die with it.
//   - Bounded capture of stdout and stderr. Output beyond
//     MaxOutput is discarded and the truncation is recorded on the
//     [Result].
//   - A sanitized environment: a short allowlist from the parent
//     process, HOME and TMPDIR pointed at the working directory, and
//     the command's own overrides.
//
// Arguments are passed as discrete tokens to execve. No shell is
// involved, so diagram content that ends up in an argument or a file
// name cannot be reinterpreted.
//
// Failures are typed: [*LaunchError] when the executable is missing
// or cannot be started, [*TimeoutError] when the bound expires, and
// [*ExitError] when the tool ran and reported failure. Cancellation
// of the caller's context is returned as the wrapped context error.
// Calls share no mutable state and may run fully in parallel.
package commander
