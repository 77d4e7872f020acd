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

package primaryindex

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/kotadb/kotadb/pkg/btree"
	"github.com/kotadb/kotadb/pkg/kota"
)

type walOpKind string

const (
	walInsert walOpKind = "insert"
	walDelete walOpKind = "delete"
)

type walOp struct {
	Kind  walOpKind  `json:"kind"`
	Key   kota.DocID `json:"key"`
	Value kota.Path  `json:"value,omitempty"`
}

type indexWAL struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

func openIndexWAL(path string) (*indexWAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	return &indexWAL{path: path, f: f}, nil
}

func (w *indexWAL) append(op walOp) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	line, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal wal op: %w", err)
	}
	line = append(line, '\n')
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("write wal op: %w", err)
	}
	return w.f.Sync()
}

func (w *indexWAL) sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Sync()
}

func (w *indexWAL) truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.f.Truncate(0); err != nil {
		return err
	}
	_, err := w.f.Seek(0, io.SeekStart)
	return err
}

func (w *indexWAL) close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

// replay applies every record in the WAL file at w.path to tree in order,
// returning the number of records applied.
func (w *indexWAL) replay(tree *btree.Tree) (int, error) {
	f, err := os.Open(w.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	count := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var op walOp
		if err := json.Unmarshal(line, &op); err != nil {
			return count, fmt.Errorf("corrupt wal record %d: %w", count, err)
		}
		switch op.Kind {
		case walInsert:
			*tree = btree.Insert(*tree, op.Key, op.Value)
		case walDelete:
			*tree = btree.Delete(*tree, op.Key)
		}
		count++
	}
	return count, scanner.Err()
}
