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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotadb/kotadb/pkg/kota"
)

// noFlushConfig disables both the count threshold and the timer, so tests
// control exactly when Flush runs.
func noFlushConfig() BufferConfig {
	return BufferConfig{MaxBufferSize: 0, FlushInterval: 0}
}

func TestBufferedStoreServesUnflushedWritesFromBuffer(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner, err := Open(dir)
	require.NoError(t, err)
	defer inner.Close()

	b := NewBufferedStoreWithConfig(inner, noFlushConfig())
	doc := newTestDocument(t, "alpha")
	require.NoError(t, b.Insert(ctx, doc))

	got, err := b.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)

	// Nothing has been flushed yet, so the inner store has no record of it.
	_, err = inner.Get(ctx, doc.ID)
	assert.Error(t, err)

	pending, flushes := b.Stats()
	assert.Equal(t, 1, pending)
	assert.Zero(t, flushes)
}

func TestBufferedStoreFlushWritesThroughToInner(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner, err := Open(dir)
	require.NoError(t, err)
	defer inner.Close()

	b := NewBufferedStoreWithConfig(inner, noFlushConfig())
	doc := newTestDocument(t, "beta")
	require.NoError(t, b.Insert(ctx, doc))
	require.NoError(t, b.Flush())

	got, err := inner.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)

	pending, flushes := b.Stats()
	assert.Zero(t, pending)
	assert.EqualValues(t, 1, flushes)
}

func TestBufferedStoreAutoFlushesOnceMaxBufferSizeReached(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner, err := Open(dir)
	require.NoError(t, err)
	defer inner.Close()

	b := NewBufferedStoreWithConfig(inner, BufferConfig{MaxBufferSize: 2})
	require.NoError(t, b.Insert(ctx, newTestDocument(t, "one")))
	pending, _ := b.Stats()
	assert.Equal(t, 1, pending)

	require.NoError(t, b.Insert(ctx, newTestDocument(t, "two")))
	pending, flushes := b.Stats()
	assert.Zero(t, pending, "buffer should have auto-flushed at the size threshold")
	assert.EqualValues(t, 1, flushes)
}

func TestBufferedStoreAutoFlushesOnceMaxBufferBytesReached(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner, err := Open(dir)
	require.NoError(t, err)
	defer inner.Close()

	doc := newTestDocument(t, "bytes")
	b := NewBufferedStoreWithConfig(inner, BufferConfig{MaxBufferBytes: int64(doc.Size())})
	require.NoError(t, b.Insert(ctx, doc))

	pending, flushes := b.Stats()
	assert.Zero(t, pending, "buffer should have auto-flushed once queued content reached MaxBufferBytes")
	assert.EqualValues(t, 1, flushes)

	got, err := inner.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)
}

func TestBufferedStoreDeleteOnMissingDocIsNoOp(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner, err := Open(dir)
	require.NoError(t, err)
	defer inner.Close()

	b := NewBufferedStoreWithConfig(inner, noFlushConfig())
	err = b.Delete(ctx, kota.NewDocID())
	require.NoError(t, err)

	pending, _ := b.Stats()
	assert.Zero(t, pending, "a delete of an unknown id should never enqueue an op")
}

func TestBufferedStoreGetAfterBufferedDeleteReportsNotFound(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner, err := Open(dir)
	require.NoError(t, err)
	defer inner.Close()

	doc := newTestDocument(t, "gamma")
	require.NoError(t, inner.Insert(ctx, doc))

	b := NewBufferedStoreWithConfig(inner, noFlushConfig())
	require.NoError(t, b.Delete(ctx, doc.ID))

	_, err = b.Get(ctx, doc.ID)
	assert.Error(t, err)
}

func TestBufferedStoreListAllMergesBufferedOpsWithInner(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner, err := Open(dir)
	require.NoError(t, err)
	defer inner.Close()

	onDisk := newTestDocument(t, "disk")
	require.NoError(t, inner.Insert(ctx, onDisk))

	b := NewBufferedStoreWithConfig(inner, noFlushConfig())
	buffered := newTestDocument(t, "buffered")
	require.NoError(t, b.Insert(ctx, buffered))
	require.NoError(t, b.Delete(ctx, onDisk.ID))

	docs, err := b.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, buffered.ID, docs[0].ID)
}

func TestBufferedStoreCloseDrainsBufferAndClosesInner(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	inner, err := Open(dir)
	require.NoError(t, err)

	b := NewBufferedStoreWithConfig(inner, noFlushConfig())
	doc := newTestDocument(t, "delta")
	require.NoError(t, b.Insert(ctx, doc))
	require.NoError(t, b.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)
}
