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

	"github.com/kotadb/kotadb/internal/kerrors"
)

const maxTitleLen = 1024

// Title is a validated, non-blank document title.
type Title struct {
	value string
}

// NewTitle validates and wraps a title.
func NewTitle(t string) (Title, error) {
	if strings.TrimSpace(t) == "" {
		return Title{}, kerrors.New(kerrors.KindInvalidInput, "kota.NewTitle", t,
			"title must not be empty or whitespace-only", nil).WithSub(kerrors.SubTitle)
	}
	if len(t) > maxTitleLen {
		return Title{}, kerrors.New(kerrors.KindInvalidInput, "kota.NewTitle", t,
			"title exceeds the 1024-byte limit", nil).WithSub(kerrors.SubTitle)
	}
	return Title{value: t}, nil
}

// String returns the validated title text.
func (t Title) String() string { return t.value }

// MarshalText implements encoding.TextMarshaler.
func (t Title) MarshalText() ([]byte, error) { return []byte(t.value), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Title) UnmarshalText(text []byte) error {
	v, err := NewTitle(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
