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
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kotadb/kotadb/pkg/kota"
)

var (
	registeredMu   sync.Mutex
	registeredRegs = make(map[prometheus.Registerer]bool)

	opsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kotadb_backend_operations_total",
			Help: "Total number of storage.Backend operations by name and outcome",
		},
		[]string{"operation", "outcome"},
	)

	opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kotadb_backend_operation_duration_seconds",
			Help:    "storage.Backend operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)
)

// registerMetrics registers the package's collectors with reg exactly once
// per registry, tolerating repeated Metered construction against the same
// registry (the default registry in particular).
func registerMetrics(reg prometheus.Registerer) {
	registeredMu.Lock()
	defer registeredMu.Unlock()
	if registeredRegs[reg] {
		return
	}
	reg.MustRegister(opsTotal, opDuration)
	registeredRegs[reg] = true
}

// Metered wraps a Backend, recording a request counter (labeled by outcome)
// and a latency histogram per operation, registered with a prometheus
// Registerer so callers can expose them over /metrics.
type Metered struct {
	inner Backend
}

// NewMetered wraps inner and registers its collectors with reg. Pass
// prometheus.DefaultRegisterer to use the global registry.
func NewMetered(inner Backend, reg prometheus.Registerer) *Metered {
	registerMetrics(reg)
	return &Metered{inner: inner}
}

func (m *Metered) observe(op string) func(err *error) {
	start := time.Now()
	return func(err *error) {
		outcome := "ok"
		if err != nil && *err != nil {
			outcome = "error"
		}
		opsTotal.WithLabelValues(op, outcome).Inc()
		opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func (m *Metered) Insert(ctx context.Context, doc kota.Document) (err error) {
	done := m.observe("Insert")
	defer func() { done(&err) }()
	return m.inner.Insert(ctx, doc)
}

func (m *Metered) Update(ctx context.Context, doc kota.Document) (err error) {
	done := m.observe("Update")
	defer func() { done(&err) }()
	return m.inner.Update(ctx, doc)
}

func (m *Metered) Get(ctx context.Context, id kota.DocID) (doc kota.Document, err error) {
	done := m.observe("Get")
	defer func() { done(&err) }()
	return m.inner.Get(ctx, id)
}

func (m *Metered) Delete(ctx context.Context, id kota.DocID) (err error) {
	done := m.observe("Delete")
	defer func() { done(&err) }()
	return m.inner.Delete(ctx, id)
}

func (m *Metered) ListAll(ctx context.Context) (docs []kota.Document, err error) {
	done := m.observe("ListAll")
	defer func() { done(&err) }()
	return m.inner.ListAll(ctx)
}

func (m *Metered) Flush() (err error) {
	done := m.observe("Flush")
	defer func() { done(&err) }()
	return m.inner.Flush()
}

func (m *Metered) Sync() (err error) {
	done := m.observe("Sync")
	defer func() { done(&err) }()
	return m.inner.Sync()
}

func (m *Metered) Close() (err error) {
	done := m.observe("Close")
	defer func() { done(&err) }()
	return m.inner.Close()
}
