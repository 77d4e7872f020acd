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

// Package primaryindex persists the DocId -> Path B+ tree (pkg/btree) to
// disk: metadata.json for bookkeeping, btree_data.json for the sorted
// key-value pairs, and an append-only WAL for durability between
// snapshots. Loading is lazy — construction only opens the WAL, and the
// first query or mutation triggers the actual tree build.
package primaryindex

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kotadb/kotadb/internal/kerrors"
	"github.com/kotadb/kotadb/internal/logging"
	"github.com/kotadb/kotadb/pkg/btree"
	"github.com/kotadb/kotadb/pkg/kota"
)

type loadState int32

const (
	stateNotLoaded loadState = iota
	stateLoading
	stateLoaded
	stateFailed
)

const (
	metaDir = "meta"
	dataDir = "data"
	walDir  = "wal"

	metadataFile = "metadata.json"
	dataFile     = "btree_data.json"
	walFileName  = "current.wal"

	formatVersion = 1
)

// Index is a lazily-loaded, persisted primary index.
type Index struct {
	root string

	state   atomic.Int32
	loadErr atomic.Pointer[error]
	loadCh  atomic.Pointer[chan struct{}]

	mu       sync.RWMutex // guards tree + meta once loaded
	tree     btree.Tree
	meta     Metadata
	wal      *indexWAL
	fanout   int
}

// Metadata is the bookkeeping record stored at meta/metadata.json.
type Metadata struct {
	Version       int       `json:"version"`
	DocumentCount int       `json:"document_count"`
	Created       time.Time `json:"created"`
	Updated       time.Time `json:"updated"`
}

// Open constructs an Index rooted at dir without reading the tree data —
// only the WAL file handle is opened. Call any query/mutation method (or
// EnsureLoaded directly) to trigger the actual load.
func Open(dir string) (*Index, error) {
	for _, sub := range []string{metaDir, dataDir, walDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o750); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	w, err := openIndexWAL(filepath.Join(dir, walDir, walFileName))
	if err != nil {
		return nil, fmt.Errorf("open wal: %w", err)
	}
	idx := &Index{root: dir, wal: w, fanout: btree.DefaultFanout}
	idx.state.Store(int32(stateNotLoaded))
	return idx, nil
}

// EnsureLoaded performs the single-flight lazy load described in the
// component design: the first caller transitions NotLoaded -> Loading and
// does the I/O; concurrent callers wait on a channel closed when the load
// finishes; Failed is sticky and returned to every subsequent caller
// without retrying.
func (idx *Index) EnsureLoaded(ctx context.Context) error {
	for {
		switch loadState(idx.state.Load()) {
		case stateLoaded:
			return nil
		case stateFailed:
			errPtr := idx.loadErr.Load()
			if errPtr != nil {
				return *errPtr
			}
			return kerrors.New(kerrors.KindIOPermanent, "primaryindex.EnsureLoaded", idx.root, "", nil)
		case stateLoading:
			ch := idx.loadCh.Load()
			if ch == nil {
				continue // transitioning; spin briefly
			}
			select {
			case <-*ch:
				continue
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(30 * time.Second):
				return kerrors.New(kerrors.KindTimeout, "primaryindex.EnsureLoaded", idx.root, "load is taking too long", nil)
			}
		case stateNotLoaded:
			if !idx.state.CompareAndSwap(int32(stateNotLoaded), int32(stateLoading)) {
				continue // lost the race, re-check state
			}
			done := make(chan struct{})
			idx.loadCh.Store(&done)
			err := idx.doLoad()
			if err != nil {
				idx.loadErr.Store(&err)
				idx.state.Store(int32(stateFailed))
			} else {
				idx.state.Store(int32(stateLoaded))
			}
			close(done)
			if err != nil {
				return err
			}
			return nil
		}
	}
}

func (idx *Index) doLoad() error {
	log := logging.Component("primaryindex")
	meta, err := loadMetadata(filepath.Join(idx.root, metaDir, metadataFile))
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	pairs, err := loadData(filepath.Join(idx.root, dataDir, dataFile))
	if err != nil {
		return fmt.Errorf("load btree data: %w", err)
	}

	tree := btree.BulkInsert(btree.New(idx.fanout), pairs)
	replayed, err := idx.wal.replay(&tree)
	if err != nil {
		return fmt.Errorf("replay wal: %w", err)
	}
	if replayed > 0 {
		log.Info().Int("records", replayed).Msg("recovered primary index from wal")
	}

	idx.mu.Lock()
	idx.tree = tree
	idx.meta = meta
	idx.meta.DocumentCount = tree.Count()
	idx.mu.Unlock()
	return nil
}

// Insert maps id -> path, overwriting any existing mapping (insert_or_replace).
func (idx *Index) Insert(ctx context.Context, id kota.DocID, p kota.Path) error {
	if err := idx.EnsureLoaded(ctx); err != nil {
		return err
	}
	if err := idx.wal.append(walOp{Kind: walInsert, Key: id, Value: p}); err != nil {
		return fmt.Errorf("append wal: %w", err)
	}
	idx.mu.Lock()
	idx.tree = btree.Insert(idx.tree, id, p)
	idx.meta.DocumentCount = idx.tree.Count()
	idx.meta.Updated = time.Now().UTC()
	v, ok := btree.Search(idx.tree, id)
	idx.mu.Unlock()
	if !ok || v.String() != p.String() {
		return kerrors.New(kerrors.KindCorruption, "primaryindex.Insert", id.String(),
			"insert postcondition failed: new mapping not visible", nil).WithSub(kerrors.SubTree)
	}
	return nil
}

// Delete removes id's mapping, if present.
func (idx *Index) Delete(ctx context.Context, id kota.DocID) error {
	if err := idx.EnsureLoaded(ctx); err != nil {
		return err
	}
	if err := idx.wal.append(walOp{Kind: walDelete, Key: id}); err != nil {
		return fmt.Errorf("append wal: %w", err)
	}
	idx.mu.Lock()
	idx.tree = btree.Delete(idx.tree, id)
	idx.meta.DocumentCount = idx.tree.Count()
	idx.meta.Updated = time.Now().UTC()
	_, stillPresent := btree.Search(idx.tree, id)
	idx.mu.Unlock()
	if stillPresent {
		return kerrors.New(kerrors.KindCorruption, "primaryindex.Delete", id.String(),
			"delete postcondition failed: key still present", nil).WithSub(kerrors.SubTree)
	}
	return nil
}

// Search returns the path mapped to id, if any.
func (idx *Index) Search(ctx context.Context, id kota.DocID) (kota.Path, bool, error) {
	if err := idx.EnsureLoaded(ctx); err != nil {
		return kota.Path{}, false, err
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	p, ok := btree.Search(idx.tree, id)
	return p, ok, nil
}

// SearchWildcard returns, in tree order, the paths matching pattern (see
// kota.MatchWildcard for matching semantics), truncated to limit.
func (idx *Index) SearchWildcard(ctx context.Context, pattern string, limit kota.Limit) ([]kota.DocID, error) {
	if err := idx.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var out []kota.DocID
	for _, pair := range btree.Iter(idx.tree) {
		if uint32(len(out)) >= limit.Value() {
			break
		}
		if kota.MatchWildcard(pattern, pair.Value.String()) {
			out = append(out, pair.Key)
		}
	}
	return out, nil
}

// DocumentCount returns the tree's entry count, as tracked in metadata.
func (idx *Index) DocumentCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.meta.DocumentCount
}

// IsValid reports whether the underlying tree still satisfies the B+ tree
// structural invariants — exposed for dev/test contract checks.
func (idx *Index) IsValid() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return btree.IsValidBTree(idx.tree)
}

// Flush writes a fresh btree_data.json + metadata.json snapshot and
// truncates the WAL.
func (idx *Index) Flush() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	pairs := btree.Iter(idx.tree)
	if err := writeData(filepath.Join(idx.root, dataDir, dataFile), pairs); err != nil {
		return fmt.Errorf("write btree data: %w", err)
	}
	idx.meta.Version = formatVersion
	idx.meta.DocumentCount = len(pairs)
	if err := writeMetadata(filepath.Join(idx.root, metaDir, metadataFile), idx.meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return idx.wal.truncate()
}

// Sync fsyncs the WAL without rewriting the snapshot.
func (idx *Index) Sync() error { return idx.wal.sync() }

// Close flushes and closes the underlying WAL handle.
func (idx *Index) Close() error {
	if err := idx.Flush(); err != nil {
		return err
	}
	return idx.wal.close()
}
