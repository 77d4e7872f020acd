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

// Package trigram implements the full-text candidate index: every distinct
// lowercased 3-byte shingle of a document's content maps to a posting list
// of (DocId, byte positions). Search intersects postings for every trigram
// in the query to produce a candidate superset; callers re-verify against
// actual content since the filter allows false positives by design.
package trigram

import (
	"bytes"
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kotadb/kotadb/internal/lazyload"
	"github.com/kotadb/kotadb/pkg/kota"
)

type trigramKey [3]byte

// Index is a lazily-loaded trigram posting-list index backed by a
// content snapshot plus a WAL, following the same durability shape as
// pkg/storage and pkg/primaryindex.
type Index struct {
	root   string
	loader lazyload.Loader[struct{}]
	wal    *trigramWAL

	mu          sync.RWMutex
	postings    map[trigramKey]map[kota.DocID][]uint32
	docTrigrams map[kota.DocID]map[trigramKey]struct{}
	content     map[kota.DocID][]byte // lowercased, for the short-query linear-scan fallback
}

// Open constructs an Index rooted at dir. Loading is deferred to the first
// operation that needs it.
func Open(dir string) (*Index, error) {
	w, err := openTrigramWAL(filepath.Join(dir, walFileName))
	if err != nil {
		return nil, err
	}
	return &Index{
		root:        dir,
		wal:         w,
		postings:    make(map[trigramKey]map[kota.DocID][]uint32),
		docTrigrams: make(map[kota.DocID]map[trigramKey]struct{}),
		content:     make(map[kota.DocID][]byte),
	}, nil
}

func (idx *Index) ensureLoaded(ctx context.Context) error {
	_, err := idx.loader.Ensure(ctx, func() (struct{}, error) {
		docs, err := loadSnapshot(filepath.Join(idx.root, snapshotFileName))
		if err != nil {
			return struct{}{}, err
		}
		idx.mu.Lock()
		for id, c := range docs {
			idx.insertLocked(id, c)
		}
		idx.mu.Unlock()
		if err := idx.wal.replay(func(id kota.DocID, content []byte, deleted bool) {
			idx.mu.Lock()
			if deleted {
				idx.deleteLocked(id)
			} else {
				idx.insertLocked(id, content)
			}
			idx.mu.Unlock()
		}); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return err
}

// InsertWithContent tokenizes content into trigrams and updates postings
// for id, replacing any previous content stored for the same id.
func (idx *Index) InsertWithContent(ctx context.Context, id kota.DocID, content []byte) error {
	if err := idx.ensureLoaded(ctx); err != nil {
		return err
	}
	lowered := toLower(content)
	if err := idx.wal.appendUpsert(id, lowered); err != nil {
		return err
	}
	idx.mu.Lock()
	idx.insertLocked(id, lowered)
	idx.mu.Unlock()
	return nil
}

// Delete removes id from every posting list it appears in.
func (idx *Index) Delete(ctx context.Context, id kota.DocID) error {
	if err := idx.ensureLoaded(ctx); err != nil {
		return err
	}
	if err := idx.wal.appendDelete(id); err != nil {
		return err
	}
	idx.mu.Lock()
	idx.deleteLocked(id)
	idx.mu.Unlock()
	return nil
}

// Search returns the candidate DocIds for query: the intersection of
// postings for every trigram in the (lowercased) query, or a linear scan
// over stored content when query is shorter than 3 bytes. The result is a
// superset of exact substring matches — callers re-verify.
func (idx *Index) Search(ctx context.Context, query string) ([]kota.DocID, error) {
	if err := idx.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	lowered := bytes.ToLower([]byte(query))

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(lowered) < 3 {
		return idx.linearScanLocked(lowered), nil
	}

	trigrams := extract(lowered)
	var candidateSets []map[kota.DocID][]uint32
	for _, tg := range trigrams {
		postings, ok := idx.postings[tg]
		if !ok {
			return nil, nil // a required trigram has no postings at all: no candidates
		}
		candidateSets = append(candidateSets, postings)
	}
	if len(candidateSets) == 0 {
		return nil, nil
	}

	result := make(map[kota.DocID]struct{})
	for id := range candidateSets[0] {
		inAll := true
		for _, set := range candidateSets[1:] {
			if _, ok := set[id]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			result[id] = struct{}{}
		}
	}
	return sortedIDs(result), nil
}

func (idx *Index) linearScanLocked(query []byte) []kota.DocID {
	result := make(map[kota.DocID]struct{})
	for id, c := range idx.content {
		if bytes.Contains(c, query) {
			result[id] = struct{}{}
		}
	}
	return sortedIDs(result)
}

func (idx *Index) insertLocked(id kota.DocID, lowered []byte) {
	idx.deleteLocked(id) // upsert: clear any previous postings for id first
	positions := extractWithPositions(lowered)
	trigramSet := make(map[trigramKey]struct{}, len(positions))
	for tg, pos := range positions {
		if idx.postings[tg] == nil {
			idx.postings[tg] = make(map[kota.DocID][]uint32)
		}
		idx.postings[tg][id] = pos
		trigramSet[tg] = struct{}{}
	}
	idx.docTrigrams[id] = trigramSet
	idx.content[id] = lowered
}

func (idx *Index) deleteLocked(id kota.DocID) {
	for tg := range idx.docTrigrams[id] {
		delete(idx.postings[tg], id)
		if len(idx.postings[tg]) == 0 {
			delete(idx.postings, tg)
		}
	}
	delete(idx.docTrigrams, id)
	delete(idx.content, id)
}

// Flush writes a fresh content snapshot and truncates the WAL.
func (idx *Index) Flush() error {
	idx.mu.RLock()
	snapshot := make(map[kota.DocID][]byte, len(idx.content))
	for id, c := range idx.content {
		snapshot[id] = c
	}
	idx.mu.RUnlock()
	if err := writeSnapshot(filepath.Join(idx.root, snapshotFileName), snapshot); err != nil {
		return err
	}
	return idx.wal.truncate()
}

// Close flushes and releases the WAL file handle.
func (idx *Index) Close() error {
	if err := idx.Flush(); err != nil {
		return err
	}
	return idx.wal.close()
}

func toLower(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return bytes.ToLower(out)
}

func extract(content []byte) []trigramKey {
	if len(content) < 3 {
		return nil
	}
	out := make([]trigramKey, 0, len(content)-2)
	for i := 0; i+3 <= len(content); i++ {
		out = append(out, trigramKey{content[i], content[i+1], content[i+2]})
	}
	return out
}

func extractWithPositions(content []byte) map[trigramKey][]uint32 {
	out := make(map[trigramKey][]uint32)
	if len(content) < 3 {
		return out
	}
	for i := 0; i+3 <= len(content); i++ {
		tg := trigramKey{content[i], content[i+1], content[i+2]}
		out[tg] = append(out[tg], uint32(i))
	}
	return out
}

func sortedIDs(set map[kota.DocID]struct{}) []kota.DocID {
	out := make([]kota.DocID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
