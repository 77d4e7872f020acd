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

// Package wrappers implements the composable decorators spec §4.9 lays over
// a storage.Backend: Traced, Validated, Retryable, Cached, and Metered.
// Each wrapper takes a storage.Backend and returns one, so they nest in any
// order without changing the base's observable semantics — only what
// happens around each call.
//
// A typical stack, innermost first: a durable *storage.Store, wrapped in
// Retryable (absorb transient I/O errors), then Cached (serve hot gets from
// memory), then Validated (defense in depth against a deserialized
// boundary), then Traced and Metered (observability, outermost so every
// call passes through them; the retries Retryable makes further in are not
// seen as separate calls).
package wrappers

import "github.com/kotadb/kotadb/pkg/storage"

// Backend re-exports storage.Backend so callers that only import wrappers
// don't also need the storage package in scope for type signatures.
type Backend = storage.Backend
