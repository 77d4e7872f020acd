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

package trigram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotadb/kotadb/pkg/kota"
)

func newID(t *testing.T, n byte) kota.DocID {
	t.Helper()
	var b [16]byte
	b[0] = 1
	b[15] = n
	id, err := kota.DocIDFromBytes(b)
	require.NoError(t, err)
	return id
}

func TestSearchFindsSubstringSuperset(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	id1, id2 := newID(t, 1), newID(t, 2)
	require.NoError(t, idx.InsertWithContent(ctx, id1, []byte("The quick brown fox")))
	require.NoError(t, idx.InsertWithContent(ctx, id2, []byte("jumps over the lazy dog")))

	hits, err := idx.Search(ctx, "quick")
	require.NoError(t, err)
	assert.ElementsMatch(t, []kota.DocID{id1}, hits)

	hits, err = idx.Search(ctx, "the")
	require.NoError(t, err)
	assert.ElementsMatch(t, []kota.DocID{id1, id2}, hits) // "The" / "the" both match case-insensitively
}

func TestSearchShortQueryFallsBackToLinearScan(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	id := newID(t, 1)
	require.NoError(t, idx.InsertWithContent(ctx, id, []byte("ab cd ef")))

	hits, err := idx.Search(ctx, "cd")
	require.NoError(t, err)
	assert.ElementsMatch(t, []kota.DocID{id}, hits)
}

func TestDeleteRemovesFromPostings(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	id := newID(t, 1)
	require.NoError(t, idx.InsertWithContent(ctx, id, []byte("unique content here")))
	hits, err := idx.Search(ctx, "unique")
	require.NoError(t, err)
	require.Len(t, hits, 1)

	require.NoError(t, idx.Delete(ctx, id))
	hits, err = idx.Search(ctx, "unique")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	idx, err := Open(dir)
	require.NoError(t, err)

	id := newID(t, 5)
	require.NoError(t, idx.InsertWithContent(ctx, id, []byte("persistent trigram content")))
	require.NoError(t, idx.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	hits, err := reopened.Search(ctx, "persistent")
	require.NoError(t, err)
	assert.ElementsMatch(t, []kota.DocID{id}, hits)
}

func TestRecoversFromWALWithoutClose(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	idx, err := Open(dir)
	require.NoError(t, err)

	id := newID(t, 7)
	require.NoError(t, idx.InsertWithContent(ctx, id, []byte("crash recovered text")))
	// No Flush/Close.

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	hits, err := reopened.Search(ctx, "recovered")
	require.NoError(t, err)
	assert.ElementsMatch(t, []kota.DocID{id}, hits)
}

func TestSearchMissingTrigramReturnsEmpty(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.InsertWithContent(ctx, newID(t, 1), []byte("hello world")))
	hits, err := idx.Search(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, hits)
}
