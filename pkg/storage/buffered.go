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
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kotadb/kotadb/internal/logging"
	"github.com/kotadb/kotadb/pkg/kota"
)

// Backend is the durable document store surface BufferedStore wraps. *Store
// satisfies it directly.
type Backend interface {
	Insert(ctx context.Context, doc kota.Document) error
	Update(ctx context.Context, doc kota.Document) error
	Get(ctx context.Context, id kota.DocID) (kota.Document, error)
	Delete(ctx context.Context, id kota.DocID) error
	ListAll(ctx context.Context) ([]kota.Document, error)
	Flush() error
	Sync() error
	Close() error
}

// BufferConfig controls how aggressively BufferedStore batches writes.
type BufferConfig struct {
	MaxBufferSize  int           // flush once this many ops are queued
	MaxBufferBytes int64         // flush once queued document content reaches this many bytes; 0 disables the check
	FlushInterval  time.Duration // flush at least this often; 0 disables the timer
}

// DefaultBufferConfig batches up to 100 writes, 4 MiB of content, or 50ms,
// whichever comes first.
func DefaultBufferConfig() BufferConfig {
	return BufferConfig{MaxBufferSize: 100, MaxBufferBytes: 4 << 20, FlushInterval: 50 * time.Millisecond}
}

type bufferedOp struct {
	kind opKind
	doc  kota.Document
	id   kota.DocID
}

type opKind int

const (
	opKindInsert opKind = iota
	opKindUpdate
	opKindDelete
)

// BufferedStore batches writes against an inner Backend to smooth out disk
// I/O. Reads are served from the buffer first (most recent operation wins),
// falling back to the inner backend — so a read always reflects every write
// accepted so far, buffered or not.
type BufferedStore struct {
	inner  Backend
	config BufferConfig

	mu            sync.Mutex
	buffer        []bufferedOp
	bufferedBytes int64
	lastFlush     time.Time

	flushCount atomic.Uint64
	shutdown   atomic.Bool
	stopTimer  chan struct{}
}

// NewBufferedStore wraps inner with default batching behavior.
func NewBufferedStore(inner Backend) *BufferedStore {
	return NewBufferedStoreWithConfig(inner, DefaultBufferConfig())
}

// NewBufferedStoreWithConfig wraps inner with custom batching behavior.
func NewBufferedStoreWithConfig(inner Backend, config BufferConfig) *BufferedStore {
	b := &BufferedStore{inner: inner, config: config, lastFlush: time.Now(), stopTimer: make(chan struct{})}
	if config.FlushInterval > 0 {
		go b.runFlushTimer()
	}
	return b
}

func (b *BufferedStore) runFlushTimer() {
	ticker := time.NewTicker(b.config.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopTimer:
			return
		case <-ticker.C:
			if b.shutdown.Load() {
				return
			}
			_ = b.Flush()
		}
	}
}

func (b *BufferedStore) Insert(ctx context.Context, doc kota.Document) error {
	b.enqueue(bufferedOp{kind: opKindInsert, doc: doc})
	return b.flushIfNeeded()
}

func (b *BufferedStore) Update(ctx context.Context, doc kota.Document) error {
	b.enqueue(bufferedOp{kind: opKindUpdate, doc: doc})
	return b.flushIfNeeded()
}

func (b *BufferedStore) Delete(ctx context.Context, id kota.DocID) error {
	if _, err := b.Get(ctx, id); err != nil {
		return nil // spec's delete-is-a-no-op-on-miss contract, mirrored here
	}
	b.enqueue(bufferedOp{kind: opKindDelete, id: id})
	return b.flushIfNeeded()
}

// Get checks the buffer in reverse order for the most recent operation on
// id before falling through to the inner backend.
func (b *BufferedStore) Get(ctx context.Context, id kota.DocID) (kota.Document, error) {
	b.mu.Lock()
	for i := len(b.buffer) - 1; i >= 0; i-- {
		op := b.buffer[i]
		switch op.kind {
		case opKindInsert, opKindUpdate:
			if op.doc.ID == id {
				b.mu.Unlock()
				return op.doc, nil
			}
		case opKindDelete:
			if op.id == id {
				b.mu.Unlock()
				return kota.Document{}, notFoundInBuffer(id)
			}
		}
	}
	b.mu.Unlock()
	return b.inner.Get(ctx, id)
}

// ListAll merges the inner backend's documents with pending buffered
// operations, so list_all always reflects every accepted write.
func (b *BufferedStore) ListAll(ctx context.Context) ([]kota.Document, error) {
	docs, err := b.inner.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	merged := make(map[kota.DocID]kota.Document, len(docs))
	for _, d := range docs {
		merged[d.ID] = d
	}
	b.mu.Lock()
	ops := append([]bufferedOp(nil), b.buffer...)
	b.mu.Unlock()
	for _, op := range ops {
		switch op.kind {
		case opKindInsert, opKindUpdate:
			merged[op.doc.ID] = op.doc
		case opKindDelete:
			delete(merged, op.id)
		}
	}
	out := make([]kota.Document, 0, len(merged))
	for _, d := range merged {
		out = append(out, d)
	}
	return out, nil
}

// Flush drains the buffer into the inner backend and syncs it.
func (b *BufferedStore) Flush() error {
	b.mu.Lock()
	ops := b.buffer
	b.buffer = nil
	b.bufferedBytes = 0
	b.lastFlush = time.Now()
	b.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}
	ctx := context.Background()
	for _, op := range ops {
		var err error
		switch op.kind {
		case opKindInsert:
			err = b.inner.Update(ctx, op.doc) // upsert: a buffered insert may have been superseded by a later update
		case opKindUpdate:
			err = b.inner.Update(ctx, op.doc)
		case opKindDelete:
			err = b.inner.Delete(ctx, op.id)
		}
		if err != nil {
			return err
		}
	}
	if err := b.inner.Sync(); err != nil {
		return err
	}
	b.flushCount.Add(1)
	logging.Component("storage.buffered").Debug().Int("ops", len(ops)).Msg("flushed buffer")
	return nil
}

func (b *BufferedStore) Sync() error {
	if err := b.Flush(); err != nil {
		return err
	}
	return b.inner.Sync()
}

// Close stops the background flush timer, drains the buffer, and closes the
// inner backend.
func (b *BufferedStore) Close() error {
	b.shutdown.Store(true)
	close(b.stopTimer)
	if err := b.Flush(); err != nil {
		return err
	}
	return b.inner.Close()
}

// Stats reports the number of pending buffered ops and completed flushes.
func (b *BufferedStore) Stats() (pending int, flushes uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer), b.flushCount.Load()
}

func (b *BufferedStore) enqueue(op bufferedOp) {
	b.mu.Lock()
	b.buffer = append(b.buffer, op)
	b.bufferedBytes += int64(op.doc.Size())
	b.mu.Unlock()
}

func (b *BufferedStore) flushIfNeeded() error {
	b.mu.Lock()
	n := len(b.buffer)
	bytes := b.bufferedBytes
	over := (n >= b.config.MaxBufferSize && b.config.MaxBufferSize > 0) ||
		(bytes >= b.config.MaxBufferBytes && b.config.MaxBufferBytes > 0)
	b.mu.Unlock()
	if over {
		return b.Flush()
	}
	return nil
}

func notFoundInBuffer(id kota.DocID) error {
	return &bufferMissError{id: id}
}

type bufferMissError struct{ id kota.DocID }

func (e *bufferMissError) Error() string { return "document deleted (buffered): " + e.id.String() }
