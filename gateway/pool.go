// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bureau-foundation/glyph/diagram"
)

// DefaultMaxQueued and DefaultQueueTimeout apply when PoolConfig
// leaves them zero.
const (
	DefaultMaxQueued    = 64
	DefaultQueueTimeout = 30 * time.Second
)

// PoolConfig sizes a Pool.
type PoolConfig struct {
	// Workers is the number of conversions that run at once.
	// Zero means runtime.NumCPU().
	Workers int

	// MaxQueued is how many requests may wait for a worker before
	// new arrivals are rejected. Negative disables queuing.
	MaxQueued int

	// QueueTimeout bounds how long a request waits for a worker.
	QueueTimeout time.Duration
}

// Pool bounds concurrent conversions. Requests beyond the worker count
// queue up to a limit; beyond that, or after waiting too long, they
// are rejected as overloaded.
type Pool struct {
	slots        *semaphore.Weighted
	workers      int
	maxQueued    int64
	queueTimeout time.Duration

	waiting atomic.Int64
	running atomic.Int64
}

// NewPool returns a Pool for config.
func NewPool(config PoolConfig) *Pool {
	workers := config.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	maxQueued := int64(config.MaxQueued)
	switch {
	case config.MaxQueued == 0:
		maxQueued = DefaultMaxQueued
	case config.MaxQueued < 0:
		maxQueued = 0
	}
	queueTimeout := config.QueueTimeout
	if queueTimeout <= 0 {
		queueTimeout = DefaultQueueTimeout
	}
	return &Pool{
		slots:        semaphore.NewWeighted(int64(workers)),
		workers:      workers,
		maxQueued:    maxQueued,
		queueTimeout: queueTimeout,
	}
}

// errOverloaded is returned when no worker frees up in time.
func errOverloaded() *diagram.Error {
	return diagram.New(diagram.KindOverloaded, "dispatch", "conversion capacity exhausted")
}

// Acquire waits for a worker. On success the returned function must be
// called once the conversion finishes. Errors are *diagram.Error:
// Overloaded when the queue is full or the wait timed out, and
// ExecutionFault wrapping the context error when ctx ended first.
func (p *Pool) Acquire(ctx context.Context) (func(), error) {
	if p.slots.TryAcquire(1) {
		return p.release(), nil
	}

	if p.waiting.Add(1) > p.maxQueued {
		p.waiting.Add(-1)
		return nil, errOverloaded()
	}
	waitCtx, cancel := context.WithTimeout(ctx, p.queueTimeout)
	err := p.slots.Acquire(waitCtx, 1)
	cancel()
	p.waiting.Add(-1)

	if err != nil {
		if ctx.Err() != nil {
			return nil, diagram.ExecutionFault("dispatch", fmt.Errorf("waiting for a worker: %w", ctx.Err()))
		}
		return nil, errOverloaded()
	}
	return p.release(), nil
}

func (p *Pool) release() func() {
	p.running.Add(1)
	var once atomic.Bool
	return func() {
		if once.CompareAndSwap(false, true) {
			p.running.Add(-1)
			p.slots.Release(1)
		}
	}
}

// Workers returns the number of concurrent conversions allowed.
func (p *Pool) Workers() int { return p.workers }

// Running returns the number of conversions holding a worker.
func (p *Pool) Running() int { return int(p.running.Load()) }

// Waiting returns the number of requests queued for a worker.
func (p *Pool) Waiting() int { return int(p.waiting.Load()) }

// RetryAfter is the Retry-After value sent with overload responses:
// the queue timeout in whole seconds, at least one.
func (p *Pool) RetryAfter() string {
	return strconv.Itoa(max(1, int(math.Ceil(p.queueTimeout.Seconds()))))
}
