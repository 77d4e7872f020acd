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

// BulkInsert inserts many pairs at once, picking a strategy by the ratio of
// new to existing entries (spec §4.2):
//   - existing == 0: build bottom-up from sorted, deduped pairs.
//   - new > existing/2: extract all pairs, merge+sort+dedupe, rebuild.
//   - otherwise: iterate single Insert in sorted order (cheaper due to
//     locality of the resulting writes).
//
// Duplicate keys within pairs, or between pairs and the existing tree,
// resolve last-writer-wins.
func BulkInsert(t Tree, pairs []Pair) Tree {
	if len(pairs) == 0 {
		return t
	}
	existing := t.Count()

	if existing == 0 {
		deduped := dedupeSorted(pairs)
		t.root = buildBottomUp(deduped, t)
		return t
	}

	if len(pairs) > existing/2 {
		all := append(Iter(t), pairs...)
		deduped := dedupeSorted(all)
		t.root = buildBottomUp(deduped, t)
		return t
	}

	sorted := sortPairs(pairs)
	for _, p := range sorted {
		t = Insert(t, p.Key, p.Value)
	}
	return t
}

// BulkDelete removes many keys at once, per the same size-ratio heuristic
// as BulkInsert.
func BulkDelete(t Tree, keys []kota.DocID) Tree {
	if len(keys) == 0 {
		return t
	}
	existing := t.Count()
	if existing == 0 {
		return t
	}

	if len(keys) > existing/2 {
		toDelete := make(map[kota.DocID]bool, len(keys))
		for _, k := range keys {
			toDelete[k] = true
		}
		all := Iter(t)
		kept := all[:0:0]
		for _, p := range all {
			if !toDelete[p.Key] {
				kept = append(kept, p)
			}
		}
		t.root = buildBottomUp(kept, t)
		return t
	}

	for _, k := range keys {
		t = Delete(t, k)
	}
	return t
}

func sortPairs(pairs []Pair) []Pair {
	out := make([]Pair, len(pairs))
	copy(out, pairs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

// dedupeSorted sorts pairs by key (stable) and collapses duplicate keys,
// keeping the last occurrence — last-writer-wins, since a stable sort
// preserves the relative order of equal-key pairs.
func dedupeSorted(pairs []Pair) []Pair {
	sorted := sortPairs(pairs)
	out := make([]Pair, 0, len(sorted))
	for i, p := range sorted {
		if i+1 < len(sorted) && sorted[i+1].Key.Compare(p.Key) == 0 {
			continue // a later duplicate will overwrite this one
		}
		out = append(out, p)
	}
	return out
}

// buildBottomUp packs sorted, deduped pairs into leaves (at most maxKeys()
// entries each, respecting the same occupancy bound single inserts
// maintain) and builds internal levels above them. Chunk sizes are balanced
// (see chunkSizes) rather than filled greedily, so no group — leaf or
// internal — is ever left with a single leftover element that would either
// violate minimum occupancy or force an unequal-depth promotion.
func buildBottomUp(pairs []Pair, t Tree) *node {
	if len(pairs) == 0 {
		return nil
	}
	leafCap := t.maxKeys()
	if leafCap < 1 {
		leafCap = 1
	}

	var level []*node
	offset := 0
	for _, size := range chunkSizes(len(pairs), t.minKeys(), leafCap) {
		chunk := pairs[offset : offset+size]
		offset += size
		keys := make([]kota.DocID, len(chunk))
		values := make([]kota.Path, len(chunk))
		for j, p := range chunk {
			keys[j] = p.Key
			values[j] = p.Value
		}
		level = append(level, &node{leaf: true, keys: keys, values: values})
	}

	for len(level) > 1 {
		childCap := t.maxKeys() + 1 // an internal node may hold up to maxKeys()+1 children
		minChildren := t.minKeys() + 1
		var next []*node
		off := 0
		for _, size := range chunkSizes(len(level), minChildren, childCap) {
			chunkChildren := level[off : off+size]
			off += size
			keys := make([]kota.DocID, 0, len(chunkChildren)-1)
			for _, c := range chunkChildren[1:] {
				keys = append(keys, firstKey(c))
			}
			next = append(next, &node{leaf: false, keys: keys, children: append([]*node(nil), chunkChildren...)})
		}
		level = next
	}

	return level[0]
}

// chunkSizes splits n items into groups of at most max items each, balancing
// sizes so every group (but possibly the sole group, when n <= max) has at
// least min items. min is advisory for the single-group case: a lone root
// node is exempt from minimum occupancy.
func chunkSizes(n, min, max int) []int {
	if max < 1 {
		max = 1
	}
	if n <= max {
		return []int{n}
	}
	groups := (n + max - 1) / max
	base := n / groups
	rem := n % groups
	if base < min && min > 0 {
		// Fall back to the largest group size that still fits within max;
		// occupancy may dip below min only in the pathological case of an
		// extremely small fanout, which callers are expected not to use.
		base = max
		groups = (n + max - 1) / max
		rem = n - base*(groups-1)
		if rem > max {
			groups++
			rem = n - base*(groups-1)
		}
	}
	sizes := make([]int, groups)
	for i := range sizes {
		sizes[i] = base
		if i < rem {
			sizes[i]++
		}
	}
	return sizes
}

func firstKey(n *node) kota.DocID {
	for !n.leaf {
		n = n.children[0]
	}
	return n.keys[0]
}
