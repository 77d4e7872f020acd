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

// Package btree implements a side-effect-free, persistent (copy-on-write)
// B+ tree mapping kota.DocID to kota.Path. Every operation takes a Tree
// value and returns a new Tree value; the previous value remains valid and
// untouched, so callers may hold on to old snapshots freely.
package btree

import "github.com/kotadb/kotadb/pkg/kota"

// node is either a leaf (keys+values) or an internal node (keys+children).
// Nodes are never mutated after construction: every write path builds new
// node values and shares unmodified subtrees with the previous tree.
type node struct {
	leaf     bool
	keys     []kota.DocID
	values   []kota.Path // len(values) == len(keys), leaf only
	children []*node     // len(children) == len(keys)+1, internal only
}

func (n *node) isLeaf() bool { return n == nil || n.leaf }

// search returns the index of the first key >= target (lower bound).
func search(keys []kota.DocID, target kota.DocID) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if keys[mid].Less(target) {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// childIndex returns which child subtree a key belongs in for an internal node.
func childIndex(keys []kota.DocID, key kota.DocID) int {
	idx := search(keys, key)
	// keys[idx] is the first separator >= key. If equal, key lives in the
	// right subtree of that separator (children[idx+1]) by convention: a
	// subtree rooted at children[i] holds keys in [keys[i-1], keys[i]).
	if idx < len(keys) && !key.Less(keys[idx]) && keys[idx].Compare(key) == 0 {
		return idx + 1
	}
	return idx
}

func cloneKeys(keys []kota.DocID) []kota.DocID {
	out := make([]kota.DocID, len(keys))
	copy(out, keys)
	return out
}

func cloneValues(values []kota.Path) []kota.Path {
	out := make([]kota.Path, len(values))
	copy(out, values)
	return out
}

func cloneChildren(children []*node) []*node {
	out := make([]*node, len(children))
	copy(out, children)
	return out
}

func insertAt[T any](s []T, i int, v T) []T {
	s = append(s, v)
	copy(s[i+1:], s[i:len(s)-1])
	s[i] = v
	return s
}

func removeAt[T any](s []T, i int) []T {
	out := make([]T, 0, len(s)-1)
	out = append(out, s[:i]...)
	out = append(out, s[i+1:]...)
	return out
}

// countEntries counts leaf key-value pairs under n.
func countEntries(n *node) int {
	if n == nil {
		return 0
	}
	if n.leaf {
		return len(n.keys)
	}
	total := 0
	for _, c := range n.children {
		total += countEntries(c)
	}
	return total
}

func depth(n *node) int {
	if n == nil {
		return 1
	}
	if n.leaf {
		return 1
	}
	return 1 + depth(n.children[0])
}
