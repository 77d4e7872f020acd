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

package relate

import (
	"context"
	"fmt"
)

// TracePathQuery asks for a call chain from From to To that passes through
// each of Waypoints, in order — a convenience layered on CallChain for
// call paths too long or too indirect to name with a single From/To pair.
type TracePathQuery struct {
	From      string
	To        string
	Waypoints []string
	MaxDepth  int
}

// TracePath chains CallChain across each consecutive pair of stops
// (From, Waypoints..., To), concatenating the segment paths into one
// Result. A broken segment — no chain found between two consecutive
// stops — fails the whole trace rather than returning a partial path,
// since a waypoint chain with a gap isn't the path the caller asked for.
func (e *Engine) TracePath(ctx context.Context, q TracePathQuery) (Result, error) {
	stops := make([]string, 0, len(q.Waypoints)+2)
	if q.From != "" {
		stops = append(stops, q.From)
	}
	stops = append(stops, q.Waypoints...)
	if q.To != "" {
		stops = append(stops, q.To)
	}
	if len(stops) < 2 {
		return Result{}, fmt.Errorf("relate.TracePath: need at least a From and To stop")
	}

	var fullPath []Match
	var totalSymbols int
	for i := 0; i < len(stops)-1; i++ {
		segQuery := Query{Kind: CallChain, From: stops[i], To: stops[i+1], MaxDepth: q.MaxDepth}
		segResult, err := e.Execute(ctx, segQuery)
		if err != nil {
			return Result{}, fmt.Errorf("relate.TracePath: segment %d (%s -> %s): %w", i+1, stops[i], stops[i+1], err)
		}
		if len(segResult.DirectRelationships) == 0 {
			return Result{}, fmt.Errorf("relate.TracePath: no chain found for segment %d (%s -> %s)", i+1, stops[i], stops[i+1])
		}
		totalSymbols += segResult.Stats.SymbolsAnalyzed

		seg := segResult.DirectRelationships
		if i > 0 && len(seg) > 0 {
			seg = seg[1:] // the junction stop is already the last entry in fullPath
		}
		fullPath = append(fullPath, seg...)
	}

	return Result{
		Query:               Query{Kind: CallChain, From: q.From, To: q.To},
		DirectRelationships: fullPath,
		Stats:               Stats{DirectCount: len(fullPath), SymbolsAnalyzed: totalSymbols},
		Summary: fmt.Sprintf("traced %d-hop waypoint chain from %q to %q via %d waypoint(s)",
			len(fullPath)-1, q.From, q.To, len(q.Waypoints)),
	}, nil
}
