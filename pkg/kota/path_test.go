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
)

func TestNewPathRejectsInvalid(t *testing.T) {
	cases := []string{"", "/abs/path", "a/../b", strings.Repeat("x", 5000)}
	for _, c := range cases {
		_, err := NewPath(c)
		require.Error(t, err, "path %q should be rejected", c)
	}
}

func TestNewInternalPathAllowsAbsolute(t *testing.T) {
	p, err := NewInternalPath("/var/lib/kotadb")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/kotadb", p.String())
}

func TestMatchWildcard(t *testing.T) {
	cases := []struct {
		pattern string
		input   string
		want    bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"*.rs", "src/a.rs", true},
		{"*.rs", "src/a.go", false},
		{"test_*", "test_foo.rs", true},
		{"test_*", "foo_test.rs", false},
		{"*Controller.rs", "UserController.rs", true},
		{"*Controller.rs", "Controller.rs", true},
		{"tests/*", "tests/c.rs", true},
		{"tests/*", "src/c.rs", false},
		{"a*b*c", "axxbyyc", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "acb", false},
		{"a**b", "axxb", true},
	}
	for _, c := range cases {
		got := MatchWildcard(c.pattern, c.input)
		assert.Equalf(t, c.want, got, "MatchWildcard(%q, %q)", c.pattern, c.input)
	}
}
