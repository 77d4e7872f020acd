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

// Package kota holds the validated value types every public KotaDB API
// takes and returns. Constructors validate once; a constructed value never
// fails revalidation.
package kota

import (
	"github.com/google/uuid"

	"github.com/kotadb/kotadb/internal/kerrors"
)

// DocID is a 128-bit opaque document identifier, backed by a UUID. Two
// DocIDs compare lexicographically over their 16 raw bytes for B+ tree
// ordering.
type DocID struct {
	raw [16]byte
}

// NewDocID generates a fresh random (v4) DocID.
func NewDocID() DocID {
	return DocID{raw: uuid.New()}
}

// ParseDocID validates and wraps a UUID given in text form (canonical,
// braced, urn:uuid: or 32 hex digits). Use DocIDFromBytes for raw bytes.
func ParseDocID(s string) (DocID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return DocID{}, kerrors.New(kerrors.KindInvalidInput, "kota.ParseDocID", s,
			"pass a canonical UUID string, e.g. xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx", err).WithSub(kerrors.SubID)
	}
	return DocIDFromBytes(id)
}

// DocIDFromBytes wraps a raw 16-byte identifier. All-zero is rejected.
func DocIDFromBytes(b [16]byte) (DocID, error) {
	if b == ([16]byte{}) {
		return DocID{}, kerrors.New(kerrors.KindInvalidInput, "kota.DocIDFromBytes", "",
			"a DocId may not be the all-zero value", nil).WithSub(kerrors.SubID)
	}
	return DocID{raw: b}, nil
}

// Bytes returns the raw 16-byte representation.
func (d DocID) Bytes() [16]byte { return d.raw }

// String renders the canonical UUID text form.
func (d DocID) String() string { return uuid.UUID(d.raw).String() }

// Compare returns -1, 0, or 1 as d is less than, equal to, or greater than
// other, using lexicographic byte order — the B+ tree's total order.
func (d DocID) Compare(other DocID) int {
	for i := range d.raw {
		if d.raw[i] != other.raw[i] {
			if d.raw[i] < other.raw[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Less reports whether d sorts before other.
func (d DocID) Less(other DocID) bool { return d.Compare(other) < 0 }

// IsZero reports whether d is the (invalid) zero value, useful for spotting
// an unconstructed DocID before it escapes into a tree.
func (d DocID) IsZero() bool { return d.raw == [16]byte{} }

// MarshalText implements encoding.TextMarshaler for JSON/YAML round trips.
func (d DocID) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DocID) UnmarshalText(text []byte) error {
	id, err := ParseDocID(string(text))
	if err != nil {
		return err
	}
	*d = id
	return nil
}
