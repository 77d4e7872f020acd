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
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/kotadb/kotadb/pkg/kota"
)

type walOp string

const (
	opInsert walOp = "insert"
	opUpdate walOp = "update"
	opDelete walOp = "delete"
)

// walRecord is one line of the write-ahead log. Doc is nil for deletes.
type walRecord struct {
	Op  walOp         `json:"op"`
	ID  kota.DocID    `json:"id"`
	Doc *kota.Document `json:"doc,omitempty"`
}

// walWriter appends JSON-line records to an append-only file, fsyncing after
// every write so a record is never acknowledged before it is durable.
type walWriter struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func openWALWriter(path string) (*walWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &walWriter{path: path, f: f}, nil
}

func (w *walWriter) append(rec walRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal wal record: %w", err)
	}
	line = append(line, '\n')
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("write wal record: %w", err)
	}
	return w.f.Sync()
}

func (w *walWriter) sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Sync()
}

// truncate empties the WAL file in place, called after a snapshot has been
// durably written and the log's records are no longer needed for recovery.
func (w *walWriter) truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Truncate(0); err != nil {
		return err
	}
	_, err := w.f.Seek(0, io.SeekStart)
	return err
}

func (w *walWriter) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// replayWAL reads every record in the log at path (if any) and applies it to
// docs in order, returning the number of records replayed. Missing files
// replay zero records — that's the clean-shutdown case.
func replayWAL(path string, docs map[kota.DocID]kota.Document) (int, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	count := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec walRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return count, fmt.Errorf("corrupt wal record %d: %w", count, err)
		}
		switch rec.Op {
		case opInsert, opUpdate:
			if rec.Doc != nil {
				docs[rec.ID] = *rec.Doc
			}
		case opDelete:
			delete(docs, rec.ID)
		}
		count++
	}
	if err := scanner.Err(); err != nil {
		return count, err
	}
	return count, nil
}
