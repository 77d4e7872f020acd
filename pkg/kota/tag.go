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
	"unicode"
	"unicode/utf8"

	"github.com/kotadb/kotadb/internal/kerrors"
)

const maxTagLen = 64

// Tag is a validated, lowercase-normalized document tag. Comparison between
// two Tags is case-insensitive because storage is always lowercased.
type Tag struct {
	value string
}

// NewTag validates and lowercase-normalizes a tag.
func NewTag(t string) (Tag, error) {
	if t == "" {
		return Tag{}, kerrors.New(kerrors.KindInvalidInput, "kota.NewTag", t,
			"tag must not be empty", nil).WithSub(kerrors.SubTag)
	}
	if utf8.RuneCountInString(t) > maxTagLen {
		return Tag{}, kerrors.New(kerrors.KindInvalidInput, "kota.NewTag", t,
			"tag exceeds the 64-character limit", nil).WithSub(kerrors.SubTag)
	}
	for _, r := range t {
		if unicode.IsSpace(r) {
			return Tag{}, kerrors.New(kerrors.KindInvalidInput, "kota.NewTag", t,
				"tag must not contain whitespace", nil).WithSub(kerrors.SubTag)
		}
	}
	return Tag{value: strings.ToLower(t)}, nil
}

// String returns the normalized (lowercase) tag text.
func (t Tag) String() string { return t.value }

// Equal compares two tags; normalization already makes this case-insensitive
// relative to the tags' original spelling.
func (t Tag) Equal(other Tag) bool { return t.value == other.value }

// MarshalText implements encoding.TextMarshaler.
func (t Tag) MarshalText() ([]byte, error) { return []byte(t.value), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tag) UnmarshalText(text []byte) error {
	v, err := NewTag(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
