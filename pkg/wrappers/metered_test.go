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

package wrappers

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetered_CountsOperationsByOutcome(t *testing.T) {
	ctx := context.Background()
	mem := newMemBackend()
	reg := prometheus.NewRegistry()
	m := NewMetered(mem, reg)

	doc := newTestDoc("alpha")
	require.NoError(t, m.Insert(ctx, doc))

	_, err := m.Get(ctx, newTestDoc("missing").ID)
	require.Error(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(opsTotal.WithLabelValues("Insert", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(opsTotal.WithLabelValues("Get", "error")))
}
