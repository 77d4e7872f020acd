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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCached_ServesHotGetsWithoutHittingInner(t *testing.T) {
	ctx := context.Background()
	mem := newMemBackend()
	c, err := NewCached(mem, 8)
	require.NoError(t, err)

	doc := newTestDoc("alpha")
	require.NoError(t, c.Insert(ctx, doc))

	before := mem.getCall
	got, err := c.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, before+1, mem.getCall, "Insert invalidates the id, so the first Get goes to inner")

	got2, err := c.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, mem.getCall, "second Get should be served from cache")
	assert.Equal(t, doc.ID, got2.ID)
}

func TestCached_InvalidatesOnDelete(t *testing.T) {
	ctx := context.Background()
	mem := newMemBackend()
	c, err := NewCached(mem, 8)
	require.NoError(t, err)

	doc := newTestDoc("alpha")
	require.NoError(t, c.Insert(ctx, doc))
	require.NoError(t, c.Delete(ctx, doc.ID))

	_, err = c.Get(ctx, doc.ID)
	assert.Error(t, err, "deleted document must not be served from a stale cache entry")
}

func TestCached_PopulatesFromInnerOnMiss(t *testing.T) {
	ctx := context.Background()
	mem := newMemBackend()
	doc := newTestDoc("alpha")
	require.NoError(t, mem.Insert(ctx, doc))

	c, err := NewCached(mem, 8)
	require.NoError(t, err)

	got, err := c.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	callsAfterFirst := mem.getCall
	_, err = c.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, callsAfterFirst, mem.getCall)
}
