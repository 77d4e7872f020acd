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

	"github.com/kotadb/kotadb/internal/kerrors"
	"github.com/kotadb/kotadb/pkg/kota"
)

func TestValidated_RejectsZeroID(t *testing.T) {
	ctx := context.Background()
	v := NewValidated(newMemBackend(), 0)

	err := v.Insert(ctx, kota.Document{})
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.KindInvalidInput))
}

func TestValidated_RejectsOversizedContent(t *testing.T) {
	ctx := context.Background()
	v := NewValidated(newMemBackend(), 4)

	doc := newTestDoc("alpha")
	err := v.Insert(ctx, doc)
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.KindCapacityExceeded))
}

func TestValidated_PassesThroughValidDocument(t *testing.T) {
	ctx := context.Background()
	mem := newMemBackend()
	v := NewValidated(mem, 0)

	doc := newTestDoc("alpha")
	require.NoError(t, v.Insert(ctx, doc))

	got, err := v.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, doc.Content, got.Content)
}

func TestValidated_GetDeleteRejectZeroID(t *testing.T) {
	ctx := context.Background()
	v := NewValidated(newMemBackend(), 0)

	_, err := v.Get(ctx, kota.DocID{})
	require.Error(t, err)

	err = v.Delete(ctx, kota.DocID{})
	require.Error(t, err)
}
