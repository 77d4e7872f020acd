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

package kota

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kotadb/kotadb/internal/kerrors"
)

func TestNewDocIDRejectsAllZero(t *testing.T) {
	_, err := DocIDFromBytes([16]byte{})
	require.Error(t, err)
	assert.True(t, kerrors.Is(err, kerrors.KindInvalidInput))
}

func TestParseDocIDRoundTrips(t *testing.T) {
	id := NewDocID()
	parsed, err := ParseDocID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestParseDocIDRejectsGarbage(t *testing.T) {
	_, err := ParseDocID("not-a-uuid")
	require.Error(t, err)
}

func TestDocIDCompareIsLexicographic(t *testing.T) {
	a, err := DocIDFromBytes([16]byte{0: 1})
	require.NoError(t, err)
	b, err := DocIDFromBytes([16]byte{0: 2})
	require.NoError(t, err)
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
}

func TestTitleRejectsEmptyAndWhitespaceOnly(t *testing.T) {
	for _, in := range []string{"", "   ", "\t\n"} {
		_, err := NewTitle(in)
		require.Error(t, err, "input %q", in)
	}
}

func TestTitleRejectsTooLong(t *testing.T) {
	_, err := NewTitle(strings.Repeat("a", maxTitleLen+1))
	require.Error(t, err)
}

func TestTitleAcceptsValid(t *testing.T) {
	title, err := NewTitle("Design Notes")
	require.NoError(t, err)
	assert.Equal(t, "Design Notes", title.String())
}

func TestTagNormalizesAndRejectsInvalid(t *testing.T) {
	tag, err := NewTag("Backend")
	require.NoError(t, err)
	assert.Equal(t, "backend", tag.String())

	other, err := NewTag("BACKEND")
	require.NoError(t, err)
	assert.True(t, tag.Equal(other))

	_, err = NewTag("")
	require.Error(t, err)

	_, err = NewTag("has space")
	require.Error(t, err)

	_, err = NewTag(strings.Repeat("a", maxTagLen+1))
	require.Error(t, err)
}

func TestLimitBounds(t *testing.T) {
	_, err := NewLimit(0, 0)
	require.Error(t, err, "zero limit must be rejected")

	_, err = NewLimit(DefaultMaxLimit+1, 0)
	require.Error(t, err, "limit above the default max must be rejected")

	l, err := NewLimit(10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 10, l.Value())

	_, err = NewLimit(101, 100)
	require.Error(t, err, "a caller-supplied max must also be enforced")

	l, err = NewLimit(100, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 100, l.Value())
}
