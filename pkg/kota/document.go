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
	"time"

	"github.com/kotadb/kotadb/internal/kerrors"
)

// Document is the core stored entity: identity, path, title, content bytes,
// tags, and timestamps. Size is always content length; UpdatedAt is always
// >= CreatedAt.
type Document struct {
	ID        DocID
	Path      Path
	Title     Title
	Content   []byte
	Tags      []Tag
	CreatedAt time.Time
	UpdatedAt time.Time
	// Embedding is an optional dense vector, opaque to the core (spec §3).
	Embedding []float32
}

// Size returns len(Content), the invariant the core checks on every mutation.
func (d Document) Size() int { return len(d.Content) }

// NewDocument constructs a fresh Document with CreatedAt == UpdatedAt == now.
// It performs no validation; call Validate to check the invariants.
func NewDocument(id DocID, path Path, title Title, content []byte, tags []Tag, now time.Time) Document {
	return Document{
		ID:        id,
		Path:      path,
		Title:     title,
		Content:   content,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithUpdatedContent returns a copy of d with Content replaced and UpdatedAt
// bumped to now; CreatedAt and ID are preserved, matching the update()
// lifecycle contract in spec §3.
func (d Document) WithUpdatedContent(content []byte, now time.Time) Document {
	d.Content = content
	d.UpdatedAt = now
	return d
}

// Validate checks the cross-field invariants spec §3 requires: UpdatedAt
// must not precede CreatedAt, and the max content size (if maxContentSize
// is nonzero) must be respected.
func (d Document) Validate(maxContentSize int) error {
	if d.UpdatedAt.Before(d.CreatedAt) {
		return kerrors.New(kerrors.KindInvalidInput, "kota.Document.Validate", d.ID.String(),
			"updated_at must not precede created_at", nil)
	}
	if maxContentSize > 0 && len(d.Content) > maxContentSize {
		return kerrors.New(kerrors.KindCapacityExceeded, "kota.Document.Validate", d.ID.String(),
			"content exceeds the configured maximum document size", nil).WithSub(kerrors.SubFiles)
	}
	return nil
}

// HasTag reports whether the document carries tag t (case-insensitive via
// Tag's own normalization).
func (d Document) HasTag(t Tag) bool {
	for _, existing := range d.Tags {
		if existing.Equal(t) {
			return true
		}
	}
	return false
}
