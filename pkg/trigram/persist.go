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

package trigram

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kotadb/kotadb/pkg/kota"
)

const (
	snapshotFileName = "trigram_content.json"
	walFileName      = "trigram.wal"
)

// snapshotEntry is one document's lowercased content, keyed by DocId.
// Posting lists are never persisted directly: they're fully determined by
// content, so rebuilding them at load time from the stored bytes keeps the
// on-disk format small and the in-memory structure always consistent.
type snapshotEntry struct {
	ID      kota.DocID `json:"id"`
	Content string     `json:"content"` // base64, content may not be valid UTF-8
}

func loadSnapshot(path string) (map[kota.DocID][]byte, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[kota.DocID][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}
	var entries []snapshotEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode trigram snapshot: %w", err)
	}
	out := make(map[kota.DocID][]byte, len(entries))
	for _, e := range entries {
		raw, err := base64.StdEncoding.DecodeString(e.Content)
		if err != nil {
			return nil, fmt.Errorf("decode content for %s: %w", e.ID, err)
		}
		out[e.ID] = raw
	}
	return out, nil
}

func writeSnapshot(path string, docs map[kota.DocID][]byte) error {
	entries := make([]snapshotEntry, 0, len(docs))
	for id, content := range docs {
		entries = append(entries, snapshotEntry{ID: id, Content: base64.StdEncoding.EncodeToString(content)})
	}
	// Deterministic ordering makes the on-disk snapshot stable across runs
	// with the same content, which is easier to diff and test against.
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID.Less(entries[j].ID) })

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode trigram snapshot: %w", err)
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

type walRecordKind string

const (
	walUpsert walRecordKind = "upsert"
	walDelete walRecordKind = "delete"
)

type walRecord struct {
	Kind    walRecordKind `json:"kind"`
	ID      kota.DocID    `json:"id"`
	Content string        `json:"content,omitempty"`
}

type trigramWAL struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func openTrigramWAL(path string) (*trigramWAL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &trigramWAL{path: path, f: f}, nil
}

func (w *trigramWAL) appendUpsert(id kota.DocID, content []byte) error {
	return w.append(walRecord{Kind: walUpsert, ID: id, Content: base64.StdEncoding.EncodeToString(content)})
}

func (w *trigramWAL) appendDelete(id kota.DocID) error {
	return w.append(walRecord{Kind: walDelete, ID: id})
}

func (w *trigramWAL) append(rec walRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	line = append(line, '\n')
	if _, err := w.f.Write(line); err != nil {
		return err
	}
	return w.f.Sync()
}

func (w *trigramWAL) truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Truncate(0); err != nil {
		return err
	}
	_, err := w.f.Seek(0, io.SeekStart)
	return err
}

func (w *trigramWAL) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// replay applies every WAL record in order via apply.
func (w *trigramWAL) replay(apply func(id kota.DocID, content []byte, deleted bool)) error {
	f, err := os.Open(w.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec walRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("corrupt trigram wal record: %w", err)
		}
		switch rec.Kind {
		case walUpsert:
			raw, err := base64.StdEncoding.DecodeString(rec.Content)
			if err != nil {
				return err
			}
			apply(rec.ID, raw, false)
		case walDelete:
			apply(rec.ID, nil, true)
		}
	}
	return scanner.Err()
}
