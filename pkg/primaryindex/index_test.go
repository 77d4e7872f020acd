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

package primaryindex

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotadb/kotadb/pkg/kota"
)

func testID(t *testing.T, n byte) kota.DocID {
	t.Helper()
	var b [16]byte
	b[0] = 1
	b[15] = n
	id, err := kota.DocIDFromBytes(b)
	require.NoError(t, err)
	return id
}

func testPath(t *testing.T, s string) kota.Path {
	t.Helper()
	p, err := kota.NewPath(s)
	require.NoError(t, err)
	return p
}

func TestIndexLazyLoadAndInsert(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	id := testID(t, 1)
	require.NoError(t, idx.Insert(ctx, id, testPath(t, "src/a.rs")))
	assert.True(t, idx.IsValid())

	p, ok, err := idx.Search(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "src/a.rs", p.String())
}

func TestIndexInsertDeletePostconditions(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	var ids []kota.DocID
	for i := 0; i < 10; i++ {
		id := testID(t, byte(i))
		ids = append(ids, id)
		require.NoError(t, idx.Insert(ctx, id, testPath(t, fmt.Sprintf("src/%d.rs", i))))
		assert.True(t, idx.IsValid())
		assert.Equal(t, i+1, idx.DocumentCount())
	}

	require.NoError(t, idx.Delete(ctx, ids[3]))
	assert.True(t, idx.IsValid())
	assert.Equal(t, 9, idx.DocumentCount())
	_, ok, err := idx.Search(ctx, ids[3])
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	idx, err := Open(dir)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, idx.Insert(ctx, testID(t, byte(i)), testPath(t, fmt.Sprintf("f%d", i))))
	}
	require.NoError(t, idx.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	p, ok, err := reopened.Search(ctx, testID(t, 2))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "f2", p.String())
	assert.Equal(t, 5, reopened.DocumentCount())
}

func TestIndexRecoversFromWALWithoutClose(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	idx, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, idx.Insert(ctx, testID(t, 9), testPath(t, "crashed.rs")))
	// No Flush/Close: only the WAL has the write.

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	p, ok, err := reopened.Search(ctx, testID(t, 9))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "crashed.rs", p.String())
}

func TestSearchWildcard(t *testing.T) {
	ctx := context.Background()
	idx, err := Open(t.TempDir())
	require.NoError(t, err)
	defer idx.Close()

	paths := []string{"src/a.rs", "src/b.rs", "src/c.go", "tests/d.rs"}
	for i, p := range paths {
		require.NoError(t, idx.Insert(ctx, testID(t, byte(i)), testPath(t, p)))
	}

	limit, err := kota.NewLimit(100, 0)
	require.NoError(t, err)
	ids, err := idx.SearchWildcard(ctx, "*.rs", limit)
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}
