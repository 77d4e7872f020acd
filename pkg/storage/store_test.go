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

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotadb/kotadb/internal/kerrors"
	"github.com/kotadb/kotadb/pkg/kota"
)

func newTestDocument(t *testing.T, name string) kota.Document {
	t.Helper()
	id := kota.NewDocID()
	p, err := kota.NewPath(name + ".md")
	require.NoError(t, err)
	title, err := kota.NewTitle("Title " + name)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return kota.NewDocument(id, p, title, []byte("content for "+name), nil, now)
}

func TestStoreInsertGetDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	doc := newTestDocument(t, "alpha")
	require.NoError(t, s.Insert(ctx, doc))

	got, err := s.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, "content for alpha", string(got.Content))

	err = s.Insert(ctx, doc)
	assert.True(t, kerrors.Is(err, kerrors.KindDuplicateID))

	require.NoError(t, s.Delete(ctx, doc.ID))
	_, err = s.Get(ctx, doc.ID)
	assert.True(t, kerrors.Is(err, kerrors.KindNotFound))

	require.NoError(t, s.Delete(ctx, doc.ID)) // delete-of-missing is a no-op
}

func TestStoreRecoversFromWALWithoutFlush(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	doc := newTestDocument(t, "beta")
	require.NoError(t, s.Insert(ctx, doc))
	// No Flush/Close — simulate a crash: only the WAL has the write.

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "content for beta", string(got.Content))
}

func TestStoreFlushTruncatesWAL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	doc := newTestDocument(t, "gamma")
	require.NoError(t, s.Insert(ctx, doc))
	require.NoError(t, s.Flush())
	require.NoError(t, s.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, 1, reopened.Count())
}

func TestStoreListAll(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	defer s.Close()

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, s.Insert(ctx, newTestDocument(t, name)))
	}
	docs, err := s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 3)
}

func TestStoreClosedRejectsOperations(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	doc := newTestDocument(t, "delta")
	err = s.Insert(ctx, doc)
	assert.True(t, kerrors.Is(err, kerrors.KindClosed))
}

func TestBufferedStoreBatchesWrites(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner, err := Open(dir)
	require.NoError(t, err)

	buffered := NewBufferedStoreWithConfig(inner, BufferConfig{MaxBufferSize: 5})
	defer buffered.Close()

	for i := 0; i < 4; i++ {
		require.NoError(t, buffered.Insert(ctx, newTestDocument(t, "doc")))
	}
	pending, _ := buffered.Stats()
	assert.Equal(t, 4, pending)

	require.NoError(t, buffered.Insert(ctx, newTestDocument(t, "doc")))
	pending, flushes := buffered.Stats()
	assert.Equal(t, 0, pending)
	assert.Equal(t, uint64(1), flushes)
}

func TestBufferedStoreReadsThroughBuffer(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner, err := Open(dir)
	require.NoError(t, err)
	buffered := NewBufferedStoreWithConfig(inner, BufferConfig{MaxBufferSize: 1000})
	defer buffered.Close()

	doc := newTestDocument(t, "epsilon")
	require.NoError(t, buffered.Insert(ctx, doc))

	got, err := buffered.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
}
