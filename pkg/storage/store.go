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

// Package storage implements the durable document store: a write-ahead log
// of append-only operations backing an in-memory map, with periodic
// snapshotting via write-temp-then-rename. It is the home for kota.Document
// persistence, independent of any index built on top of it.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/kotadb/kotadb/internal/kerrors"
	"github.com/kotadb/kotadb/internal/logging"
	"github.com/kotadb/kotadb/pkg/kota"
)

const (
	snapshotFile = "documents.json"
	walFile      = "current.wal"
)

// Store is a durable kota.Document store backed by a directory on disk. It
// holds every document in memory; durability comes from an append-only WAL
// plus atomic snapshot rewrites, following the same RWMutex-plus-closed-flag
// shape as other backends in this module.
type Store struct {
	mu      sync.RWMutex
	closed  bool
	dataDir string
	wal     *walWriter
	docs    map[kota.DocID]kota.Document
}

// Open loads (or initializes) a Store rooted at dataDir, replaying any WAL
// records left over from an unclean shutdown before truncating it.
func Open(dataDir string) (*Store, error) {
	log := logging.Component("storage")
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	docs, err := loadSnapshot(filepath.Join(dataDir, snapshotFile))
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	walPath := filepath.Join(dataDir, walFile)
	replayed, err := replayWAL(walPath, docs)
	if err != nil {
		return nil, fmt.Errorf("replay wal: %w", err)
	}
	if replayed > 0 {
		log.Info().Int("records", replayed).Msg("recovered documents from wal")
	}

	w, err := openWALWriter(walPath)
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}

	s := &Store{dataDir: dataDir, wal: w, docs: docs}
	if replayed > 0 {
		if err := s.flushLocked(); err != nil {
			return nil, fmt.Errorf("flush after recovery: %w", err)
		}
	}
	return s, nil
}

// Insert persists a new document. It fails if a document with the same ID
// already exists; use Update to overwrite.
func (s *Store) Insert(ctx context.Context, doc kota.Document) error {
	if err := ctxDone(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kerrors.ErrClosed
	}
	if _, exists := s.docs[doc.ID]; exists {
		return kerrors.New(kerrors.KindDuplicateID, "storage.Insert", doc.ID.String(), "document already exists, use Update", nil)
	}
	return s.writeLocked(opInsert, doc)
}

// Update overwrites an existing document, or creates it if absent — upsert
// semantics, matching the primary index's insert_or_replace contract.
func (s *Store) Update(ctx context.Context, doc kota.Document) error {
	if err := ctxDone(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kerrors.ErrClosed
	}
	return s.writeLocked(opUpdate, doc)
}

// Get returns the document for id, or kerrors.NotFound if absent.
func (s *Store) Get(ctx context.Context, id kota.DocID) (kota.Document, error) {
	if err := ctxDone(ctx); err != nil {
		return kota.Document{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return kota.Document{}, kerrors.ErrClosed
	}
	doc, ok := s.docs[id]
	if !ok {
		return kota.Document{}, kerrors.New(kerrors.KindNotFound, "storage.Get", id.String(), "", nil)
	}
	return doc, nil
}

// Delete removes a document. Deleting a missing ID is a no-op, not an error.
func (s *Store) Delete(ctx context.Context, id kota.DocID) error {
	if err := ctxDone(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kerrors.ErrClosed
	}
	if _, ok := s.docs[id]; !ok {
		return nil
	}
	if err := s.wal.append(walRecord{Op: opDelete, ID: id}); err != nil {
		return fmt.Errorf("append wal: %w", err)
	}
	delete(s.docs, id)
	return nil
}

// ListAll returns every stored document, in no particular order.
func (s *Store) ListAll(ctx context.Context) ([]kota.Document, error) {
	if err := ctxDone(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, kerrors.ErrClosed
	}
	out := make([]kota.Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out, nil
}

// Count returns the number of stored documents.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Flush writes a fresh snapshot of every document and truncates the WAL.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return kerrors.ErrClosed
	}
	return s.flushLocked()
}

// Sync forces the WAL to stable storage without rewriting the snapshot.
func (s *Store) Sync() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return kerrors.ErrClosed
	}
	return s.wal.sync()
}

// Close flushes pending writes and releases the underlying file handles.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	err := s.flushLocked()
	if cerr := s.wal.close(); cerr != nil && err == nil {
		err = cerr
	}
	s.closed = true
	return err
}

func (s *Store) writeLocked(op walOp, doc kota.Document) error {
	if err := s.wal.append(walRecord{Op: op, ID: doc.ID, Doc: &doc}); err != nil {
		return fmt.Errorf("append wal: %w", err)
	}
	s.docs[doc.ID] = doc
	return nil
}

func (s *Store) flushLocked() error {
	if err := writeSnapshot(filepath.Join(s.dataDir, snapshotFile), s.docs); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := s.wal.truncate(); err != nil {
		return fmt.Errorf("truncate wal: %w", err)
	}
	return nil
}

func ctxDone(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
