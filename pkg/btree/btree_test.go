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

package btree

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotadb/kotadb/pkg/kota"
)

func docID(t *testing.T, raw byte) kota.DocID {
	t.Helper()
	var b [16]byte
	b[15] = raw
	b[0] = 1 // keep non-zero regardless of raw
	id, err := kota.DocIDFromBytes(b)
	require.NoError(t, err)
	return id
}

func path(t *testing.T, s string) kota.Path {
	t.Helper()
	p, err := kota.NewPath(s)
	require.NoError(t, err)
	return p
}

func TestInsertSearchDelete(t *testing.T) {
	tree := New(4)
	require.True(t, IsValidBTree(tree))

	var ids []kota.DocID
	for i := 0; i < 50; i++ {
		id := docID(t, byte(i))
		ids = append(ids, id)
		tree = Insert(tree, id, path(t, fmt.Sprintf("src/%02d.rs", i)))
		require.True(t, IsValidBTree(tree), "invalid after insert %d", i)
	}
	assert.Equal(t, 50, tree.Count())

	for i, id := range ids {
		v, ok := Search(tree, id)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("src/%02d.rs", i), v.String())
	}

	for i, id := range ids {
		if i%3 != 0 {
			continue
		}
		tree = Delete(tree, id)
		require.True(t, IsValidBTree(tree), "invalid after delete %d", i)
	}
	for i, id := range ids {
		_, ok := Search(tree, id)
		if i%3 == 0 {
			assert.False(t, ok)
		} else {
			assert.True(t, ok)
		}
	}
}

func TestDeleteIsIdempotentOk(t *testing.T) {
	tree := New(4)
	id := docID(t, 1)
	tree = Insert(tree, id, path(t, "a"))
	tree = Delete(tree, id)
	tree = Delete(tree, id) // deleting twice is not an error, just a no-op
	_, ok := Search(tree, id)
	assert.False(t, ok)
}

func TestInsertDuplicateLastWriterWins(t *testing.T) {
	tree := New(4)
	id := docID(t, 1)
	tree = Insert(tree, id, path(t, "first"))
	tree = Insert(tree, id, path(t, "second"))
	assert.Equal(t, 1, tree.Count())
	v, ok := Search(tree, id)
	require.True(t, ok)
	assert.Equal(t, "second", v.String())
}

func TestBulkInsertFromEmptyMatchesSequentialPermutation(t *testing.T) {
	var pairs []Pair
	for i := 0; i < 200; i++ {
		pairs = append(pairs, Pair{Key: docID(t, byte(i)), Value: path(t, fmt.Sprintf("f%03d", i))})
	}

	bulk := BulkInsert(New(8), pairs)
	require.True(t, IsValidBTree(bulk))
	assert.Equal(t, len(pairs), bulk.Count())

	perm := append([]Pair(nil), pairs...)
	rand.New(rand.NewSource(42)).Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	sequential := New(8)
	for _, p := range perm {
		sequential = Insert(sequential, p.Key, p.Value)
	}

	assert.ElementsMatch(t, sortedPairKeys(t, Iter(bulk)), sortedPairKeys(t, Iter(sequential)))
}

func TestBulkDeleteMatchesSequential(t *testing.T) {
	var pairs []Pair
	for i := 0; i < 100; i++ {
		pairs = append(pairs, Pair{Key: docID(t, byte(i)), Value: path(t, fmt.Sprintf("f%03d", i))})
	}
	base := BulkInsert(New(6), pairs)

	toDelete := []kota.DocID{pairs[2].Key, pairs[5].Key, pairs[7].Key}
	bulkDeleted := BulkDelete(base, toDelete)
	require.True(t, IsValidBTree(bulkDeleted))
	assert.Equal(t, 97, bulkDeleted.Count())

	_, ok := Search(bulkDeleted, pairs[2].Key)
	assert.False(t, ok)
	_, ok = Search(bulkDeleted, pairs[0].Key)
	assert.True(t, ok)
}

func TestIterIsSorted(t *testing.T) {
	tree := New(4)
	for i := 20; i >= 0; i-- {
		tree = Insert(tree, docID(t, byte(i)), path(t, fmt.Sprintf("%d", i)))
	}
	entries := Iter(tree)
	require.Len(t, entries, 21)
	assert.True(t, sort.SliceIsSorted(entries, func(i, j int) bool { return entries[i].Key.Less(entries[j].Key) }))
}

func sortedPairKeys(t *testing.T, pairs []Pair) []string {
	t.Helper()
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Key.String() + "=" + p.Value.String()
	}
	sort.Strings(out)
	return out
}
