// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteExecutable writes a /bin/sh script named name into directory
// and returns its absolute path. The body is everything after the
// shebang line.
//
//	dot := testutil.WriteExecutable(t, t.TempDir(), "dot", `cat`)
func WriteExecutable(t testing.TB, directory, name, body string) string {
	t.Helper()
	path := filepath.Join(directory, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing executable %s: %v", path, err)
	}
	return path
}
