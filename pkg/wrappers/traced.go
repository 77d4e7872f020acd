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
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kotadb/kotadb/internal/logging"
	"github.com/kotadb/kotadb/pkg/kota"
)

// Traced wraps a Backend, logging trace_id/span_id/operation/elapsed_ms for
// every public call. trace_id is stable for the lifetime of the wrapper
// (one logical session); span_id is fresh per call.
type Traced struct {
	inner   Backend
	traceID string
	log     zerolog.Logger
}

// NewTraced wraps inner with call tracing under the given component name
// (used only to scope the logger, e.g. "storage.documents").
func NewTraced(inner Backend, component string) *Traced {
	return &Traced{inner: inner, traceID: uuid.NewString(), log: logging.Component(component)}
}

func (t *Traced) span(op string) func(err *error) {
	spanID := uuid.NewString()
	start := time.Now()
	return func(err *error) {
		ev := t.log.Info()
		if err != nil && *err != nil {
			ev = t.log.Warn().Err(*err)
		}
		ev.Str("trace_id", t.traceID).
			Str("span_id", spanID).
			Str("operation", op).
			Int64("elapsed_ms", time.Since(start).Milliseconds()).
			Msg("wrappers.traced")
	}
}

func (t *Traced) Insert(ctx context.Context, doc kota.Document) (err error) {
	done := t.span("Insert")
	defer func() { done(&err) }()
	return t.inner.Insert(ctx, doc)
}

func (t *Traced) Update(ctx context.Context, doc kota.Document) (err error) {
	done := t.span("Update")
	defer func() { done(&err) }()
	return t.inner.Update(ctx, doc)
}

func (t *Traced) Get(ctx context.Context, id kota.DocID) (doc kota.Document, err error) {
	done := t.span("Get")
	defer func() { done(&err) }()
	return t.inner.Get(ctx, id)
}

func (t *Traced) Delete(ctx context.Context, id kota.DocID) (err error) {
	done := t.span("Delete")
	defer func() { done(&err) }()
	return t.inner.Delete(ctx, id)
}

func (t *Traced) ListAll(ctx context.Context) (docs []kota.Document, err error) {
	done := t.span("ListAll")
	defer func() { done(&err) }()
	return t.inner.ListAll(ctx)
}

func (t *Traced) Flush() (err error) {
	done := t.span("Flush")
	defer func() { done(&err) }()
	return t.inner.Flush()
}

func (t *Traced) Sync() (err error) {
	done := t.span("Sync")
	defer func() { done(&err) }()
	return t.inner.Sync()
}

func (t *Traced) Close() (err error) {
	done := t.span("Close")
	defer func() { done(&err) }()
	return t.inner.Close()
}
