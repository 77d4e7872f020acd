// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package workerpool offloads a batch of CPU-bound work items onto a
// bounded-concurrency goroutine group, generalizing the jobs-channel-plus-
// WaitGroup shape used ad hoc for parallel file parsing elsewhere in the
// ingestion pipeline this repo is descended from into a reusable,
// errgroup-backed pool.
package workerpool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// sequentialThreshold mirrors the parallel-parsing heuristic this package
// generalizes: below this many items, goroutine setup costs more than it
// saves, so Run executes inline on the calling goroutine.
const sequentialThreshold = 8

// Pool runs indexed work items with bounded concurrency.
type Pool struct {
	workers int
}

// New returns a Pool with the given worker count, clamped to at least 1.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{workers: workers}
}

// Run calls fn(ctx, i) for every i in [0,n), distributing indices across at
// most the pool's worker count goroutines at a time. It returns the first
// non-nil error, and cancels the group's context for the remaining items —
// callers that want every index attempted regardless of earlier failures
// should swallow per-item errors inside fn instead of returning them.
func (p *Pool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	if n < sequentialThreshold || p.workers == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
