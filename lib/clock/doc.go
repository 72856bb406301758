// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that compare wall-clock times (render cache expiry,
// subprocess durations) hold a Clock instead of calling time.Now
// directly. Production wiring passes Real(); tests pass Fake() and
// move time forward explicitly with Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	store := rendercache.NewMemoryStore(16, c)
//	c.Advance(2 * time.Hour) // entries written before now are expired
package clock
