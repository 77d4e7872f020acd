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

package depgraph

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/kotadb/kotadb/internal/kerrors"
	"github.com/kotadb/kotadb/pkg/symbols"
)

// dependency_graph.bin layout (all integers little-endian):
//
//	magic "KDEP" | version(u8)
//	node_count(u32)   | node_count * node record
//	edge_count(u32)   | edge_count * edge record
//	name_count(u32)   | name_count * (name, symbol_id) pair
//	file_count(u32)   | file_count * (path, import_count, import_count * import record)
//
// Every variable-length string is written as a u32 length prefix followed
// by its raw bytes.
const (
	persistMagic   = "KDEP"
	persistVersion = uint8(1)
)

// WriteTo serializes the graph to path using a temp-file-then-rename
// atomic write, the same durability pattern used across every on-disk
// format in this module.
func (g *Graph) WriteTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create graph dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".depgraph-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp graph file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	w := bufio.NewWriter(tmp)
	if err := g.encode(w); err != nil {
		tmp.Close()
		return fmt.Errorf("encode graph: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush graph: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp graph file: %w", err)
	}
	return os.Rename(tmpPath, path)
}

func (g *Graph) encode(w io.Writer) error {
	if _, err := w.Write([]byte(persistMagic)); err != nil {
		return err
	}
	if err := writeByte(w, persistVersion); err != nil {
		return err
	}

	// Nodes, in a stable order (sorted by ID) so the file is deterministic.
	ids := make([]symbols.ID, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sortIDs(ids)

	if err := writeU32(w, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		n := g.Nodes[id]
		if err := writeBytes(w, id[:]); err != nil {
			return err
		}
		if err := writeString(w, n.Name); err != nil {
			return err
		}
		if err := writeString(w, n.QualifiedName); err != nil {
			return err
		}
		if err := writeString(w, n.FilePath); err != nil {
			return err
		}
		if err := writeByte(w, uint8(n.Kind)); err != nil {
			return err
		}
		if err := writeU32(w, n.LineStart); err != nil {
			return err
		}
		if err := writeU32(w, n.LineEnd); err != nil {
			return err
		}
	}

	if err := writeU32(w, uint32(len(g.Edges))); err != nil {
		return err
	}
	for _, e := range g.Edges {
		if err := writeBytes(w, e.From[:]); err != nil {
			return err
		}
		if err := writeBytes(w, e.To[:]); err != nil {
			return err
		}
		if err := writeByte(w, uint8(e.Kind)); err != nil {
			return err
		}
		if err := writeString(w, e.Label); err != nil {
			return err
		}
		if err := writeU32(w, e.Line); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(g.NameToSymbol))
	for name := range g.NameToSymbol {
		names = append(names, name)
	}
	sortStrings(names)
	if err := writeU32(w, uint32(len(names))); err != nil {
		return err
	}
	for _, name := range names {
		id := g.NameToSymbol[name]
		if err := writeString(w, name); err != nil {
			return err
		}
		if err := writeBytes(w, id[:]); err != nil {
			return err
		}
	}

	paths := make([]string, 0, len(g.FileImports))
	for p := range g.FileImports {
		paths = append(paths, p)
	}
	sortStrings(paths)
	if err := writeU32(w, uint32(len(paths))); err != nil {
		return err
	}
	for _, p := range paths {
		imports := g.FileImports[p]
		if err := writeString(w, p); err != nil {
			return err
		}
		if err := writeU32(w, uint32(len(imports))); err != nil {
			return err
		}
		for _, imp := range imports {
			if err := writeString(w, imp.Path); err != nil {
				return err
			}
			if err := writeU32(w, uint32(len(imp.Items))); err != nil {
				return err
			}
			for _, item := range imp.Items {
				if err := writeString(w, item); err != nil {
					return err
				}
			}
			if err := writeString(w, imp.Alias); err != nil {
				return err
			}
			wildcard := uint8(0)
			if imp.Wildcard {
				wildcard = 1
			}
			if err := writeByte(w, wildcard); err != nil {
				return err
			}
			if err := writeU32(w, imp.Line); err != nil {
				return err
			}
		}
	}

	return nil
}

// ReadGraph loads a graph previously written by WriteTo. Edges whose
// endpoints do not resolve to a known node are dropped defensively, and
// adjacency indexes are rebuilt after every edge has been considered.
func ReadGraph(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open graph file: %w", err)
	}
	defer f.Close()
	return decode(bufio.NewReader(f))
}

func decode(r io.Reader) (*Graph, error) {
	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != persistMagic {
		return nil, fmt.Errorf("bad graph magic %q", magic)
	}
	version, err := readByte(r)
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != persistVersion {
		return nil, kerrors.New(kerrors.KindCorruption, "depgraph.ReadGraph",
			fmt.Sprintf("version %d", version),
			fmt.Sprintf("expected version %d, rebuild the graph", persistVersion), nil).WithSub(kerrors.SubGraph)
	}

	g := newGraph()

	nodeCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read node count: %w", err)
	}
	for i := uint32(0); i < nodeCount; i++ {
		var id symbols.ID
		if err := readBytesInto(r, id[:]); err != nil {
			return nil, fmt.Errorf("read node id: %w", err)
		}
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read node name: %w", err)
		}
		qualified, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read node qualified name: %w", err)
		}
		path, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read node path: %w", err)
		}
		kindByte, err := readByte(r)
		if err != nil {
			return nil, fmt.Errorf("read node kind: %w", err)
		}
		lineStart, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("read node line start: %w", err)
		}
		lineEnd, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("read node line end: %w", err)
		}
		g.Nodes[id] = &Node{
			SymbolID:      id,
			Name:          name,
			QualifiedName: qualified,
			FilePath:      path,
			Kind:          symbols.DecodeKind(kindByte),
			LineStart:     lineStart,
			LineEnd:       lineEnd,
		}
	}

	edgeCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read edge count: %w", err)
	}
	for i := uint32(0); i < edgeCount; i++ {
		var from, to symbols.ID
		if err := readBytesInto(r, from[:]); err != nil {
			return nil, fmt.Errorf("read edge from: %w", err)
		}
		if err := readBytesInto(r, to[:]); err != nil {
			return nil, fmt.Errorf("read edge to: %w", err)
		}
		kindByte, err := readByte(r)
		if err != nil {
			return nil, fmt.Errorf("read edge kind: %w", err)
		}
		label, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read edge label: %w", err)
		}
		line, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("read edge line: %w", err)
		}
		if _, ok := g.Nodes[from]; !ok {
			continue // defensive: skip edges whose endpoints don't resolve
		}
		if _, ok := g.Nodes[to]; !ok {
			continue
		}
		g.Edges = append(g.Edges, Edge{From: from, To: to, Kind: EdgeKind(kindByte), Label: label, Line: line})
	}

	nameCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read name count: %w", err)
	}
	for i := uint32(0); i < nameCount; i++ {
		name, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read name: %w", err)
		}
		var id symbols.ID
		if err := readBytesInto(r, id[:]); err != nil {
			return nil, fmt.Errorf("read name symbol id: %w", err)
		}
		g.NameToSymbol[name] = id
	}

	fileCount, err := readU32(r)
	if err != nil {
		return nil, fmt.Errorf("read file count: %w", err)
	}
	for i := uint32(0); i < fileCount; i++ {
		path, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("read file path: %w", err)
		}
		importCount, err := readU32(r)
		if err != nil {
			return nil, fmt.Errorf("read import count: %w", err)
		}
		imports := make([]Import, 0, importCount)
		for j := uint32(0); j < importCount; j++ {
			impPath, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("read import path: %w", err)
			}
			itemCount, err := readU32(r)
			if err != nil {
				return nil, fmt.Errorf("read import item count: %w", err)
			}
			items := make([]string, 0, itemCount)
			for k := uint32(0); k < itemCount; k++ {
				item, err := readString(r)
				if err != nil {
					return nil, fmt.Errorf("read import item: %w", err)
				}
				items = append(items, item)
			}
			alias, err := readString(r)
			if err != nil {
				return nil, fmt.Errorf("read import alias: %w", err)
			}
			wildcardByte, err := readByte(r)
			if err != nil {
				return nil, fmt.Errorf("read import wildcard: %w", err)
			}
			line, err := readU32(r)
			if err != nil {
				return nil, fmt.Errorf("read import line: %w", err)
			}
			imports = append(imports, Import{Path: impPath, Items: items, Alias: alias, Wildcard: wildcardByte != 0, Line: line})
		}
		g.FileImports[path] = imports
	}

	g.rebuildAdjacency()
	g.Stats = Stats{NodeCount: len(g.Nodes), EdgeCount: len(g.Edges)}
	return g, nil
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readByte(r io.Reader) (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func writeU32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func readU32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func writeBytes(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}

func readBytesInto(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	return err
}

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func sortIDs(ids []symbols.ID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
}

func sortStrings(s []string) {
	sort.Strings(s)
}
