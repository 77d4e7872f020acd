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

// Package logging confines KotaDB's process-wide logging state to a single
// init-once point, accepting an environment-driven filter and handing every
// component a scoped *zerolog.Logger capability rather than reaching for a
// global logger directly. Tests can substitute a buffer-backed sink to
// capture events deterministically.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	base zerolog.Logger
)

// Init configures the process-wide base logger. It is safe to call more
// than once; only the first call has an effect. Level is read from
// KOTADB_LOG_LEVEL (trace|debug|info|warn|error), defaulting to info.
func Init(w io.Writer) {
	once.Do(func() {
		if w == nil {
			w = os.Stderr
		}
		level := zerolog.InfoLevel
		if s := os.Getenv("KOTADB_LOG_LEVEL"); s != "" {
			if lvl, err := zerolog.ParseLevel(s); err == nil {
				level = lvl
			}
		}
		base = zerolog.New(w).Level(level).With().Timestamp().Logger()
	})
}

// Component returns a child logger scoped to a named component, e.g.
// "btree", "relate.engine". Init must have been called first; if it was
// not, Component initializes with the default (stderr, info) sink so that
// library code never panics on a missing setup call.
func Component(name string) zerolog.Logger {
	Init(nil)
	return base.With().Str("component", name).Logger()
}

// NewCapturing returns a logger writing to w, bypassing the process-wide
// singleton — used by tests that want to assert on emitted events.
func NewCapturing(w io.Writer, name string) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Str("component", name).Logger()
}
