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

import "strings"

// Query is the transport-agnostic input shape of spec §6.
type Query struct {
	SearchTerms []string
	Tags        []Tag
	PathPattern string
	Limit       Limit
}

// IsWildcard reports whether this query is a wildcard query: PathPattern is
// set, or a single search term contains '*'.
func (q Query) IsWildcard() bool {
	if q.PathPattern != "" {
		return true
	}
	return len(q.SearchTerms) == 1 && strings.Contains(q.SearchTerms[0], "*")
}

// IsUnsupported reports the documented unsupported combination: multiple
// search terms together with a wildcard, which must return empty.
func (q Query) IsUnsupported() bool {
	return q.IsWildcard() && len(q.SearchTerms) > 1
}

// WildcardPattern returns the effective wildcard pattern for this query:
// PathPattern if set, else the sole search term.
func (q Query) WildcardPattern() string {
	if q.PathPattern != "" {
		return q.PathPattern
	}
	if len(q.SearchTerms) == 1 {
		return q.SearchTerms[0]
	}
	return ""
}
