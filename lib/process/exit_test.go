// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"context"
	"testing"
)

func TestRunPassesLiveContext(t *testing.T) {
	called := false
	Run(func(ctx context.Context) error {
		called = true
		if ctx.Err() != nil {
			t.Errorf("context already done: %v", ctx.Err())
		}
		return nil
	})
	if !called {
		t.Fatal("run was not called")
	}
}
