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

package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kotadb/kotadb/internal/ui"
)

// startMetricsServer exposes the default Prometheus registry (which every
// Metered wrapper registers its collectors into) on addr/metrics. It runs
// in the background and its errors are reported but not fatal — indexing
// should proceed even if the metrics listener can't bind.
func startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil { //nolint:gosec // CLI-local diagnostics endpoint
			ui.Warningf("metrics server stopped: %v", err)
		}
	}()
	ui.Info("metrics: http://" + addr + "/metrics")
}
