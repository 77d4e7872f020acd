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

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kotadb/kotadb/pkg/kota"
)

// loadSnapshot reads the full-document snapshot at path, returning an empty
// map if the file doesn't exist yet (a brand-new store).
func loadSnapshot(path string) (map[kota.DocID]kota.Document, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return make(map[kota.DocID]kota.Document), nil
	}
	if err != nil {
		return nil, err
	}
	var docs []kota.Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	out := make(map[kota.DocID]kota.Document, len(docs))
	for _, d := range docs {
		out[d.ID] = d
	}
	return out, nil
}

// writeSnapshot writes docs to path atomically: encode to a temp file in the
// same directory, fsync, then rename over the destination. A crash mid-write
// leaves the previous snapshot intact since rename is atomic on the same
// filesystem.
func writeSnapshot(path string, docs map[kota.DocID]kota.Document) error {
	list := make([]kota.Document, 0, len(docs))
	for _, d := range docs {
		list = append(list, d)
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}
