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

package wrappers

import (
	"context"
	"math/rand"
	"time"

	"github.com/kotadb/kotadb/internal/kerrors"
	"github.com/kotadb/kotadb/pkg/kota"
)

// Retryable wraps a Backend, retrying operations that fail with a transient
// I/O error (kerrors.Transient) using exponential backoff with jitter: each
// wait is drawn at random from the upper half of the current delay. Any other error
// — including a non-transient I/O error — is returned immediately, matching
// the propagation policy spec §7 lays out for wrapper stacks.
type Retryable struct {
	inner        Backend
	attempts     int
	initialDelay time.Duration
	maxDelay     time.Duration
}

// NewRetryable wraps inner, retrying up to attempts times (attempts <= 1
// disables retrying) with delay starting at initialDelay and doubling each
// time up to maxDelay.
func NewRetryable(inner Backend, attempts int, initialDelay, maxDelay time.Duration) *Retryable {
	if attempts < 1 {
		attempts = 1
	}
	return &Retryable{inner: inner, attempts: attempts, initialDelay: initialDelay, maxDelay: maxDelay}
}

// retry runs op up to r.attempts times, backing off between attempts, but
// only when the returned error is transient; a permanent error short-circuits.
func (r *Retryable) retry(ctx context.Context, op func() error) error {
	delay := r.initialDelay
	var err error
	for i := 0; i < r.attempts; i++ {
		err = op()
		if err == nil || !kerrors.Transient(err) {
			return err
		}
		if i == r.attempts-1 {
			break
		}
		wait := delay
		if delay > 0 {
			wait = delay/2 + time.Duration(rand.Int63n(int64(delay/2)+1))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			delay *= 2
			if delay > r.maxDelay {
				delay = r.maxDelay
			}
		}
	}
	return err
}

func (r *Retryable) Insert(ctx context.Context, doc kota.Document) error {
	return r.retry(ctx, func() error { return r.inner.Insert(ctx, doc) })
}

func (r *Retryable) Update(ctx context.Context, doc kota.Document) error {
	return r.retry(ctx, func() error { return r.inner.Update(ctx, doc) })
}

func (r *Retryable) Get(ctx context.Context, id kota.DocID) (kota.Document, error) {
	var doc kota.Document
	err := r.retry(ctx, func() error {
		var innerErr error
		doc, innerErr = r.inner.Get(ctx, id)
		return innerErr
	})
	return doc, err
}

func (r *Retryable) Delete(ctx context.Context, id kota.DocID) error {
	return r.retry(ctx, func() error { return r.inner.Delete(ctx, id) })
}

func (r *Retryable) ListAll(ctx context.Context) ([]kota.Document, error) {
	var docs []kota.Document
	err := r.retry(ctx, func() error {
		var innerErr error
		docs, innerErr = r.inner.ListAll(ctx)
		return innerErr
	})
	return docs, err
}

func (r *Retryable) Flush() error {
	return r.retry(context.Background(), func() error { return r.inner.Flush() })
}

func (r *Retryable) Sync() error {
	return r.retry(context.Background(), func() error { return r.inner.Sync() })
}

func (r *Retryable) Close() error { return r.inner.Close() }
