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

package kota

import (
	"strings"

	"github.com/kotadb/kotadb/internal/kerrors"
)

const maxPathLen = 4096

// Path is a validated document path: non-empty, forward-slash separated,
// no ".." segment, bounded length. External-facing APIs reject absolute
// paths; NewInternalPath accepts them for storage roots.
type Path struct {
	value string
}

// NewPath validates a path for external (document) use: relative, no
// traversal segments.
func NewPath(p string) (Path, error) {
	if err := validatePathShape(p); err != nil {
		return Path{}, err
	}
	if strings.HasPrefix(p, "/") {
		return Path{}, kerrors.New(kerrors.KindInvalidInput, "kota.NewPath", p,
			"document paths must be relative, not absolute", nil).WithSub(kerrors.SubPath)
	}
	return Path{value: p}, nil
}

// NewInternalPath validates a path for internal storage-root use, where an
// absolute path is acceptable.
func NewInternalPath(p string) (Path, error) {
	if err := validatePathShape(p); err != nil {
		return Path{}, err
	}
	return Path{value: p}, nil
}

func validatePathShape(p string) error {
	if p == "" {
		return kerrors.New(kerrors.KindInvalidInput, "kota.NewPath", p,
			"path must not be empty", nil).WithSub(kerrors.SubPath)
	}
	if len(p) > maxPathLen {
		return kerrors.New(kerrors.KindInvalidInput, "kota.NewPath", p,
			"path exceeds the 4096-byte limit", nil).WithSub(kerrors.SubPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return kerrors.New(kerrors.KindInvalidInput, "kota.NewPath", p,
				"path must not contain a \"..\" segment", nil).WithSub(kerrors.SubPath)
		}
	}
	return nil
}

// String returns the validated path text.
func (p Path) String() string { return p.value }

// MarshalText implements encoding.TextMarshaler.
func (p Path) MarshalText() ([]byte, error) { return []byte(p.value), nil }

// UnmarshalText implements encoding.TextUnmarshaler, validating as internal
// (absolute paths allowed) since deserialization targets are usually
// storage-root relative.
func (p *Path) UnmarshalText(text []byte) error {
	v, err := NewInternalPath(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// MatchesWildcard reports whether this path matches a wildcard pattern per
// spec §4.4: '*' matches any run (including empty); a leading fixed part
// must be a prefix unless the pattern starts with '*'; a trailing fixed
// part must be a suffix unless the pattern ends with '*'; intermediate
// fixed parts must appear in order. Consecutive '*' collapse. Matching
// picks the leftmost-greedy position for each intermediate part (spec §9
// Open Question, resolved leftmost-greedy).
func (p Path) MatchesWildcard(pattern string) bool {
	return MatchWildcard(pattern, p.value)
}

// MatchWildcard implements the pattern semantics described on Path.MatchesWildcard
// directly over strings, so callers (e.g. the primary index) don't need a
// Path value to test a candidate.
func MatchWildcard(pattern, s string) bool {
	if pattern == "*" {
		return true
	}
	parts := strings.Split(pattern, "*")
	// strings.Split never returns an empty slice; len(parts) >= 1.
	if len(parts) == 1 {
		return pattern == s
	}

	first := parts[0]
	last := parts[len(parts)-1]
	middle := parts[1 : len(parts)-1]

	if !strings.HasPrefix(s, first) {
		return false
	}
	if !strings.HasSuffix(s, last) {
		return false
	}

	pos := len(first)
	end := len(s) - len(last)
	if end < pos {
		return false
	}
	cursor := s[pos:end]
	for _, m := range middle {
		if m == "" {
			continue // consecutive '*' collapse to no additional constraint
		}
		idx := strings.Index(cursor, m)
		if idx == -1 {
			return false
		}
		cursor = cursor[idx+len(m):]
	}
	return true
}
