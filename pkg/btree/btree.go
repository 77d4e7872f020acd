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

package btree

import (
	"sort"

	"github.com/kotadb/kotadb/pkg/kota"
)

// DefaultFanout is the recommended fanout (spec §4.2).
const DefaultFanout = 16

// Pair is a key-value entry, used by bulk operations and Iter.
type Pair struct {
	Key   kota.DocID
	Value kota.Path
}

// Metrics summarizes tree shape, returned by Analyze.
type Metrics struct {
	Height    int
	NodeCount int
	LeafCount int
	KeyCount  int
}

// Tree is an immutable snapshot of a B+ tree. The zero Tree (from New) is a
// valid empty tree.
type Tree struct {
	root   *node
	fanout int
}

// New returns an empty tree with the given fanout (DefaultFanout if m <= 0).
func New(m int) Tree {
	if m <= 0 {
		m = DefaultFanout
	}
	return Tree{fanout: m}
}

func (t Tree) maxKeys() int  { return t.fanout - 1 }
func (t Tree) minKeys() int  { return (t.fanout+1)/2 - 1 }

// Count returns the number of key-value pairs in the tree.
func (t Tree) Count() int { return countEntries(t.root) }

// Search returns the value for key, if present.
func Search(t Tree, key kota.DocID) (kota.Path, bool) {
	n := t.root
	for n != nil && !n.leaf {
		idx := childIndex(n.keys, key)
		n = n.children[idx]
	}
	if n == nil {
		return kota.Path{}, false
	}
	idx := search(n.keys, key)
	if idx < len(n.keys) && n.keys[idx].Compare(key) == 0 {
		return n.values[idx], true
	}
	return kota.Path{}, false
}

// Insert returns a new tree with key mapped to value. Duplicate keys follow
// last-writer-wins and never error.
func Insert(t Tree, key kota.DocID, value kota.Path) Tree {
	if t.root == nil {
		t.root = &node{leaf: true, keys: []kota.DocID{key}, values: []kota.Path{value}}
		return t
	}
	newRoot, splitKey, splitRight, split := insertNode(t.root, t, key, value)
	if split {
		t.root = &node{
			leaf:     false,
			keys:     []kota.DocID{splitKey},
			children: []*node{newRoot, splitRight},
		}
		return t
	}
	t.root = newRoot
	return t
}

// insertNode inserts into the subtree rooted at n, returning the
// (possibly new) node and, if n overflowed and split, the separator key and
// right sibling.
func insertNode(n *node, t Tree, key kota.DocID, value kota.Path) (*node, kota.DocID, *node, bool) {
	if n.leaf {
		idx := search(n.keys, key)
		keys := cloneKeys(n.keys)
		values := cloneValues(n.values)
		if idx < len(keys) && keys[idx].Compare(key) == 0 {
			values[idx] = value // last-writer-wins
			return &node{leaf: true, keys: keys, values: values}, kota.DocID{}, nil, false
		}
		keys = insertAt(keys, idx, key)
		values = insertAt(values, idx, value)
		if len(keys) <= t.maxKeys() {
			return &node{leaf: true, keys: keys, values: values}, kota.DocID{}, nil, false
		}
		mid := len(keys) / 2 // ceil split: right half gets the larger share
		if len(keys)%2 == 0 {
			mid = len(keys) / 2
		}
		left := &node{leaf: true, keys: cloneKeys(keys[:mid]), values: cloneValues(values[:mid])}
		right := &node{leaf: true, keys: cloneKeys(keys[mid:]), values: cloneValues(values[mid:])}
		return left, right.keys[0], right, true
	}

	idx := childIndex(n.keys, key)
	newChild, splitKey, splitRight, childSplit := insertNode(n.children[idx], t, key, value)

	keys := cloneKeys(n.keys)
	children := cloneChildren(n.children)
	children[idx] = newChild

	if !childSplit {
		return &node{leaf: false, keys: keys, children: children}, kota.DocID{}, nil, false
	}

	keys = insertAt(keys, idx, splitKey)
	children = insertAt(children, idx+1, splitRight)

	if len(keys) <= t.maxKeys() {
		return &node{leaf: false, keys: keys, children: children}, kota.DocID{}, nil, false
	}

	mid := len(keys) / 2
	upKey := keys[mid]
	left := &node{leaf: false, keys: cloneKeys(keys[:mid]), children: cloneChildren(children[:mid+1])}
	right := &node{leaf: false, keys: cloneKeys(keys[mid+1:]), children: cloneChildren(children[mid+1:])}
	return left, upKey, right, true
}

// Delete returns a new tree with key removed, if present. Deleting an
// absent key is a no-op (not an error).
func Delete(t Tree, key kota.DocID) Tree {
	if t.root == nil {
		return t
	}
	newRoot, _ := deleteNode(t.root, t, key, true)
	if newRoot != nil && !newRoot.leaf && len(newRoot.keys) == 0 {
		// Root shrank to a single child: reduce height by one.
		newRoot = newRoot.children[0]
	}
	t.root = newRoot
	return t
}

// deleteNode removes key from the subtree rooted at n. isRoot relaxes the
// minimum-occupancy check for n itself (root is exempt from the minimum).
func deleteNode(n *node, t Tree, key kota.DocID, isRoot bool) (*node, bool) {
	if n.leaf {
		idx := search(n.keys, key)
		if idx >= len(n.keys) || n.keys[idx].Compare(key) != 0 {
			return n, false // not found, no underflow
		}
		keys := removeAt(n.keys, idx)
		values := removeAt(n.values, idx)
		newLeaf := &node{leaf: true, keys: keys, values: values}
		underflow := !isRoot && len(keys) < t.minKeys()
		return newLeaf, underflow
	}

	idx := childIndex(n.keys, key)
	child, underflow := deleteNode(n.children[idx], t, key, false)

	keys := cloneKeys(n.keys)
	children := cloneChildren(n.children)
	children[idx] = child

	if !underflow {
		return &node{leaf: false, keys: keys, children: children}, false
	}

	return rebalance(keys, children, idx, t, isRoot)
}

// rebalance fixes an underflowing child at index idx by borrowing from a
// sibling or merging with one, per spec §4.2.
func rebalance(keys []kota.DocID, children []*node, idx int, t Tree, isRoot bool) (*node, bool) {
	child := children[idx]

	// Try borrow from left sibling.
	if idx > 0 {
		left := children[idx-1]
		if canLend(left, t) {
			if child.leaf {
				borrowedKey := left.keys[len(left.keys)-1]
				borrowedVal := left.values[len(left.values)-1]
				newLeft := &node{leaf: true, keys: left.keys[:len(left.keys)-1], values: left.values[:len(left.values)-1]}
				newChild := &node{leaf: true,
					keys:   insertAt(cloneKeys(child.keys), 0, borrowedKey),
					values: insertAt(cloneValues(child.values), 0, borrowedVal),
				}
				children[idx-1] = newLeft
				children[idx] = newChild
				keys[idx-1] = newChild.keys[0]
			} else {
				borrowedKey := keys[idx-1]
				borrowedChild := left.children[len(left.children)-1]
				newLeft := &node{leaf: false, keys: left.keys[:len(left.keys)-1], children: left.children[:len(left.children)-1]}
				newChild := &node{leaf: false,
					keys:     insertAt(cloneKeys(child.keys), 0, borrowedKey),
					children: insertAt(cloneChildren(child.children), 0, borrowedChild),
				}
				children[idx-1] = newLeft
				children[idx] = newChild
				keys[idx-1] = left.keys[len(left.keys)-1]
			}
			return &node{leaf: false, keys: keys, children: children}, false
		}
	}

	// Try borrow from right sibling.
	if idx < len(children)-1 {
		right := children[idx+1]
		if canLend(right, t) {
			if child.leaf {
				borrowedKey := right.keys[0]
				borrowedVal := right.values[0]
				newRight := &node{leaf: true, keys: right.keys[1:], values: right.values[1:]}
				newChild := &node{leaf: true,
					keys:   append(cloneKeys(child.keys), borrowedKey),
					values: append(cloneValues(child.values), borrowedVal),
				}
				children[idx] = newChild
				children[idx+1] = newRight
				keys[idx] = newRight.keys[0]
			} else {
				borrowedKey := keys[idx]
				borrowedChild := right.children[0]
				newRight := &node{leaf: false, keys: right.keys[1:], children: right.children[1:]}
				newChild := &node{leaf: false,
					keys:     append(cloneKeys(child.keys), borrowedKey),
					children: append(cloneChildren(child.children), borrowedChild),
				}
				children[idx] = newChild
				children[idx+1] = newRight
				keys[idx] = right.keys[0]
			}
			return &node{leaf: false, keys: keys, children: children}, false
		}
	}

	// Merge: prefer merging with the left sibling if it exists, else right.
	if idx > 0 {
		left := children[idx-1]
		merged := mergeNodes(left, child, keys[idx-1])
		children = removeAt(children, idx)
		children[idx-1] = merged
		keys = removeAt(keys, idx-1)
	} else {
		right := children[idx+1]
		merged := mergeNodes(child, right, keys[idx])
		children = removeAt(children, idx+1)
		children[idx] = merged
		keys = removeAt(keys, idx)
	}

	underflow := !isRoot && len(keys) < t.minKeys()
	return &node{leaf: false, keys: keys, children: children}, underflow
}

func canLend(sibling *node, t Tree) bool {
	return len(sibling.keys) > t.minKeys()
}

// mergeNodes joins two adjacent siblings. For internal nodes the parent's
// separator sep is pulled down between them; leaves ignore it.
func mergeNodes(left, right *node, sep kota.DocID) *node {
	if left.leaf {
		return &node{
			leaf:   true,
			keys:   append(cloneKeys(left.keys), right.keys...),
			values: append(cloneValues(left.values), right.values...),
		}
	}
	return &node{
		leaf:     false,
		keys:     append(append(cloneKeys(left.keys), sep), right.keys...),
		children: append(cloneChildren(left.children), right.children...),
	}
}

// Iter returns all entries in sorted key order. The returned slice is a
// fresh snapshot; mutating it does not affect the tree.
func Iter(t Tree) []Pair {
	var out []Pair
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		if n.leaf {
			for i, k := range n.keys {
				out = append(out, Pair{Key: k, Value: n.values[i]})
			}
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return out
}

// Analyze reports shape metrics for diagnostics and tests.
func Analyze(t Tree) Metrics {
	m := Metrics{Height: depth(t.root)}
	var walk func(n *node)
	walk = func(n *node) {
		if n == nil {
			return
		}
		m.NodeCount++
		if n.leaf {
			m.LeafCount++
			m.KeyCount += len(n.keys)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return m
}

// IsValidBTree checks the structural invariants spec §4.2 names: equal leaf
// depth, sorted keys within every node, occupancy bounds (root exempt from
// the minimum), and parent separators bounding their subtrees.
func IsValidBTree(t Tree) bool {
	if t.root == nil {
		return true
	}
	leafDepths := map[int]bool{}
	ok := validateNode(t.root, t, true, nil, nil, 0, leafDepths)
	return ok && len(leafDepths) <= 1
}

func validateNode(n *node, t Tree, isRoot bool, lower, upper *kota.DocID, d int, leafDepths map[int]bool) bool {
	if n == nil {
		return true
	}
	if !sort.SliceIsSorted(n.keys, func(i, j int) bool { return n.keys[i].Less(n.keys[j]) }) {
		return false
	}
	for i := 1; i < len(n.keys); i++ {
		if n.keys[i-1].Compare(n.keys[i]) == 0 {
			return false // duplicates are resolved before reaching storage
		}
	}
	if lower != nil {
		for _, k := range n.keys {
			if k.Less(*lower) {
				return false
			}
		}
	}
	if upper != nil {
		for _, k := range n.keys {
			if !k.Less(*upper) {
				return false
			}
		}
	}

	if n.leaf {
		leafDepths[d] = true
		if !isRoot && len(n.keys) < t.minKeys() {
			return false
		}
		return len(n.keys) <= t.maxKeys()
	}

	if !isRoot && len(n.keys) < t.minKeys() {
		return false
	}
	if len(n.keys) > t.maxKeys() {
		return false
	}
	if len(n.children) != len(n.keys)+1 {
		return false
	}
	for i, c := range n.children {
		var lo, hi *kota.DocID
		if i > 0 {
			lo = &n.keys[i-1]
		} else {
			lo = lower
		}
		if i < len(n.keys) {
			hi = &n.keys[i]
		} else {
			hi = upper
		}
		if !validateNode(c, t, false, lo, hi, d+1, leafDepths) {
			return false
		}
	}
	return true
}
