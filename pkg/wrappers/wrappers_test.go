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

	"github.com/kotadb/kotadb/internal/kerrors"
	"github.com/kotadb/kotadb/pkg/kota"
)

// memBackend is a minimal in-memory Backend fake for exercising wrappers in
// isolation, without pulling in pkg/storage's on-disk machinery.
type memBackend struct {
	mu      sync.Mutex
	docs    map[kota.DocID]kota.Document
	failN   int // number of subsequent calls to fail with a transient error
	closed  bool
	getCall int
}

func newMemBackend() *memBackend {
	return &memBackend{docs: make(map[kota.DocID]kota.Document)}
}

func (m *memBackend) failNext(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failN = n
}

func (m *memBackend) maybeFail(op string) error {
	if m.failN > 0 {
		m.failN--
		return kerrors.New(kerrors.KindIOTransient, "memBackend."+op, "", "injected failure", nil)
	}
	return nil
}

func (m *memBackend) Insert(ctx context.Context, doc kota.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("Insert"); err != nil {
		return err
	}
	if _, ok := m.docs[doc.ID]; ok {
		return kerrors.New(kerrors.KindDuplicateID, "memBackend.Insert", doc.ID.String(), "", nil)
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *memBackend) Update(ctx context.Context, doc kota.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("Update"); err != nil {
		return err
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *memBackend) Get(ctx context.Context, id kota.DocID) (kota.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCall++
	if err := m.maybeFail("Get"); err != nil {
		return kota.Document{}, err
	}
	doc, ok := m.docs[id]
	if !ok {
		return kota.Document{}, kerrors.New(kerrors.KindNotFound, "memBackend.Get", id.String(), "", nil)
	}
	return doc, nil
}

func (m *memBackend) Delete(ctx context.Context, id kota.DocID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.maybeFail("Delete"); err != nil {
		return err
	}
	delete(m.docs, id)
	return nil
}

func (m *memBackend) ListAll(ctx context.Context) ([]kota.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]kota.Document, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (m *memBackend) Flush() error { return nil }
func (m *memBackend) Sync() error  { return nil }
func (m *memBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func newTestDoc(name string) kota.Document {
	id := kota.NewDocID()
	p, _ := kota.NewPath(name + ".md")
	title, _ := kota.NewTitle("Title " + name)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return kota.NewDocument(id, p, title, []byte("content for "+name), nil, now)
}
