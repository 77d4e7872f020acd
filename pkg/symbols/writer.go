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
	"path/filepath"
	"sort"
)

// Writer buffers symbols in memory and serializes them to a symbols.kota
// file in one atomic write.
type Writer struct {
	symbols []Symbol
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Add buffers s for the next WriteTo call.
func (w *Writer) Add(s Symbol) { w.symbols = append(w.symbols, s) }

// Len returns the number of buffered symbols.
func (w *Writer) Len() int { return len(w.symbols) }

// WriteTo serializes every buffered symbol to path: header, then records
// sorted by ID, then the name region, then the path region. The file is
// written to a temp path in the same directory and renamed into place so
// readers never observe a partially-written table.
func (w *Writer) WriteTo(path string) error {
	sorted := append([]Symbol(nil), w.symbols...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.Compare(sorted[j].ID) < 0 })

	var nameRegion, pathRegion []byte
	records := make([]packedRecord, len(sorted))
	for i, s := range sorted {
		nameOff := uint32(len(nameRegion))
		pathOff := uint32(len(pathRegion))
		nameRegion = append(nameRegion, []byte(s.Name)...)
		pathRegion = append(pathRegion, []byte(s.FilePath)...)
		records[i] = encodeRecord(s, nameOff, pathOff)
	}

	recordsOff := uint64(headerSize)
	nameRegionOff := recordsOff + uint64(len(records))*recordSize
	pathRegionOff := nameRegionOff + uint64(len(nameRegion))

	h := header{
		version:       formatVersion,
		symbolCount:   uint32(len(records)),
		nameRegionOff: nameRegionOff,
		pathRegionOff: pathRegionOff,
	}

	buf := make([]byte, 0, pathRegionOff+uint64(len(pathRegion)))
	buf = append(buf, encodeHeader(h)...)
	for _, r := range records {
		buf = append(buf, r[:]...)
	}
	buf = append(buf, nameRegion...)
	buf = append(buf, pathRegion...)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create symbol table dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".symbols-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp symbol table: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(buf); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp symbol table: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp symbol table: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp symbol table: %w", err)
	}
	return os.Rename(tmpPath, path)
}
