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

// Package symbols implements the packed binary symbol table format
// (symbols.kota): a fixed-size record per symbol plus two string regions
// for names and file paths, read back with a binary search over the
// records; a hit allocates only its name and path strings.
package symbols

import "github.com/google/uuid"

// ID identifies a symbol across the dependency graph and the symbol
// table. It is a plain UUID, distinct from kota.DocID: a symbol belongs to
// a document but is not itself a document.
type ID [16]byte

// NewID generates a fresh random symbol ID.
func NewID() ID {
	var id ID
	copy(id[:], uuid.New()[:])
	return id
}

// String renders the canonical UUID text form.
func (id ID) String() string { return uuid.UUID(id).String() }

// Compare orders two IDs by their raw bytes — the same order records are
// sorted in on disk.
func (id ID) Compare(other ID) int {
	for i := range id {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Kind is the fixed u8 encoding for a symbol's syntactic category. The
// mapping is frozen: 1..14 as listed below, with any unrecognized byte
// decoding to Other rather than erroring, so older tables stay readable
// after new kinds are added.
type Kind uint8

const (
	Other     Kind = 0
	Function  Kind = 1
	Method    Kind = 2
	Class     Kind = 3
	Struct    Kind = 4
	Enum      Kind = 5
	Variable  Kind = 6
	Constant  Kind = 7
	Module    Kind = 8
	Import    Kind = 9
	Export    Kind = 10
	Type      Kind = 11
	Component Kind = 12
	Interface Kind = 13
	Comment   Kind = 14
)

func (k Kind) String() string {
	switch k {
	case Function:
		return "function"
	case Method:
		return "method"
	case Class:
		return "class"
	case Struct:
		return "struct"
	case Enum:
		return "enum"
	case Variable:
		return "variable"
	case Constant:
		return "constant"
	case Module:
		return "module"
	case Import:
		return "import"
	case Export:
		return "export"
	case Type:
		return "type"
	case Component:
		return "component"
	case Interface:
		return "interface"
	case Comment:
		return "comment"
	default:
		return "other"
	}
}

// DecodeKind maps a raw byte to a Kind, falling back to Other for any value
// outside the fixed 1..14 range — forward compatibility per the format spec.
func DecodeKind(b uint8) Kind {
	if b >= 1 && b <= 14 {
		return Kind(b)
	}
	return Other
}

// Symbol is the in-memory, fully-hydrated view of one packed record: the
// fixed fields plus its name and file path as strings.
type Symbol struct {
	ID        ID
	Kind      Kind
	LineStart uint32
	LineEnd   uint32
	ColStart  uint16
	ColEnd    uint16
	Name      string
	FilePath  string
}
