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
	"fmt"

	"github.com/kotadb/kotadb/internal/kerrors"
)

// DefaultMaxLimit is the default ceiling for a query Limit, per spec §4.1.
const DefaultMaxLimit = 100_000

// Limit is a validated, positive, bounded result-count ceiling.
type Limit struct {
	value uint32
}

// NewLimit validates n against maxAllowed (pass 0 to use DefaultMaxLimit).
func NewLimit(n uint32, maxAllowed uint32) (Limit, error) {
	if maxAllowed == 0 {
		maxAllowed = DefaultMaxLimit
	}
	if n == 0 {
		return Limit{}, kerrors.New(kerrors.KindInvalidInput, "kota.NewLimit", fmt.Sprint(n),
			"limit must be greater than zero", nil).WithSub(kerrors.SubLimit)
	}
	if n > maxAllowed {
		return Limit{}, kerrors.New(kerrors.KindInvalidInput, "kota.NewLimit", fmt.Sprint(n),
			fmt.Sprintf("limit exceeds the configured maximum of %d", maxAllowed), nil).WithSub(kerrors.SubLimit)
	}
	return Limit{value: n}, nil
}

// Value returns the validated limit.
func (l Limit) Value() uint32 { return l.value }
