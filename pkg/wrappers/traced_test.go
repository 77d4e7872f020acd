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

func TestTraced_DelegatesAndPassesThroughResults(t *testing.T) {
	ctx := context.Background()
	mem := newMemBackend()
	tr := NewTraced(mem, "test.traced")

	doc := newTestDoc("alpha")
	require.NoError(t, tr.Insert(ctx, doc))

	got, err := tr.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)

	require.NoError(t, tr.Delete(ctx, doc.ID))
	_, err = tr.Get(ctx, doc.ID)
	assert.Error(t, err)
}

func TestTraced_ClosePropagates(t *testing.T) {
	mem := newMemBackend()
	tr := NewTraced(mem, "test.traced")
	require.NoError(t, tr.Close())
	assert.True(t, mem.closed)
}
