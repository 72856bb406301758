// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commander

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// inheritedVariables are copied from the gateway's own environment.
// Everything else (credentials, cloud tokens, proxy settings) stays
// out of the child.
var inheritedVariables = []string{
	"PATH",
	"LANG",
	"LC_ALL",
	"TZ",
}

// buildEnvironment returns the child environment for a call running
// in workDir. HOME and TMPDIR point into the working directory so a
// tool that writes caches or scratch files cleans up with it.
func buildEnvironment(workDir string, overrides map[string]string) ([]string, error) {
	values := make(map[string]string, len(inheritedVariables)+2+len(overrides))
	for _, name := range inheritedVariables {
		if value, ok := os.LookupEnv(name); ok && value != "" {
			values[name] = value
		}
	}
	values["HOME"] = workDir
	values["TMPDIR"] = workDir

	for name, value := range overrides {
		if name == "" || strings.ContainsAny(name, "=\x00") {
			return nil, fmt.Errorf("invalid environment variable name %q", name)
		}
		if strings.ContainsRune(value, 0) {
			return nil, fmt.Errorf("environment variable %s contains a NUL byte", name)
		}
		values[name] = value
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	environment := make([]string, 0, len(names))
	for _, name := range names {
		environment = append(environment, name+"="+values[name])
	}
	return environment, nil
}
