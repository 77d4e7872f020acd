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

package symbols

import (
	"fmt"
	"os"
	"sort"
)

// Reader gives read-only, binary-search access to a symbols.kota file
// loaded fully into memory.
type Reader struct {
	data    []byte
	records []packedRecord
	nameOff uint64
	pathOff uint64
}

// Open reads path fully and validates its header.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read symbol table: %w", err)
	}
	h, err := decodeHeader(data)
	if err != nil {
		return nil, fmt.Errorf("symbol table %s: %w", path, err)
	}
	recordsEnd := headerSize + int(h.symbolCount)*recordSize
	if recordsEnd > len(data) || uint64(recordsEnd) > h.nameRegionOff {
		return nil, errCorrupt("records overrun name region")
	}
	if h.nameRegionOff > h.pathRegionOff || h.pathRegionOff > uint64(len(data)) {
		return nil, errCorrupt("region offsets out of range")
	}

	records := make([]packedRecord, h.symbolCount)
	for i := range records {
		off := headerSize + i*recordSize
		copy(records[i][:], data[off:off+recordSize])
	}

	return &Reader{data: data, records: records, nameOff: h.nameRegionOff, pathOff: h.pathRegionOff}, nil
}

// SymbolCount returns the number of records in the table.
func (r *Reader) SymbolCount() int { return len(r.records) }

// Find locates the symbol with the given ID via binary search over the
// ID-sorted records, returning ok=false if absent.
func (r *Reader) Find(id ID) (Symbol, bool) {
	i := sort.Search(len(r.records), func(i int) bool {
		return r.records[i].id().Compare(id) >= 0
	})
	if i >= len(r.records) || r.records[i].id().Compare(id) != 0 {
		return Symbol{}, false
	}
	return r.hydrate(r.records[i]), true
}

// Iter returns every symbol in file order (ID-sorted, since records are
// written sorted).
func (r *Reader) Iter() []Symbol {
	out := make([]Symbol, len(r.records))
	for i, rec := range r.records {
		out[i] = r.hydrate(rec)
	}
	return out
}

func (r *Reader) hydrate(rec packedRecord) Symbol {
	return Symbol{
		ID:        rec.id(),
		Kind:      rec.kind(),
		LineStart: rec.lineStart(),
		LineEnd:   rec.lineEnd(),
		ColStart:  rec.colStart(),
		ColEnd:    rec.colEnd(),
		Name:      r.getName(rec),
		FilePath:  r.getFilePath(rec),
	}
}

// getName returns the name string for rec, validated against the name
// region's bounds — a corrupt offset/length yields an empty string rather
// than panicking.
func (r *Reader) getName(rec packedRecord) string {
	start := r.nameOff + uint64(rec.nameOffset())
	end := start + uint64(rec.nameLen())
	if end > r.pathOff || start > end {
		return ""
	}
	return string(r.data[start:end])
}

// getFilePath returns the file path string for rec, validated against the
// path region's bounds.
func (r *Reader) getFilePath(rec packedRecord) string {
	start := r.pathOff + uint64(rec.pathOffset())
	end := start + uint64(rec.pathLen())
	if end > uint64(len(r.data)) || start > end {
		return ""
	}
	return string(r.data[start:end])
}
