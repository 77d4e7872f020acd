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

	"github.com/kotadb/kotadb/internal/kerrors"
	"github.com/kotadb/kotadb/pkg/kota"
)

// Validated wraps a Backend, re-checking document invariants before every
// write — defense in depth for documents that crossed a deserialization
// boundary (e.g. came in off a wire format) since their kota value types
// were last validated at construction.
type Validated struct {
	inner          Backend
	maxContentSize int
}

// NewValidated wraps inner, rejecting documents whose content exceeds
// maxContentSize (0 disables the check) or that fail kota.Document.Validate.
func NewValidated(inner Backend, maxContentSize int) *Validated {
	return &Validated{inner: inner, maxContentSize: maxContentSize}
}

func (v *Validated) checkDoc(op string, doc kota.Document) error {
	if doc.ID.IsZero() {
		return kerrors.New(kerrors.KindInvalidInput, "wrappers.Validated."+op, "",
			"document id must not be the zero value", nil).WithSub(kerrors.SubID)
	}
	if doc.Size() != len(doc.Content) {
		return kerrors.New(kerrors.KindInvalidInput, "wrappers.Validated."+op, doc.ID.String(),
			"document size must equal len(content)", nil)
	}
	return doc.Validate(v.maxContentSize)
}

func (v *Validated) Insert(ctx context.Context, doc kota.Document) error {
	if err := v.checkDoc("Insert", doc); err != nil {
		return err
	}
	return v.inner.Insert(ctx, doc)
}

func (v *Validated) Update(ctx context.Context, doc kota.Document) error {
	if err := v.checkDoc("Update", doc); err != nil {
		return err
	}
	return v.inner.Update(ctx, doc)
}

func (v *Validated) Get(ctx context.Context, id kota.DocID) (kota.Document, error) {
	if id.IsZero() {
		return kota.Document{}, kerrors.New(kerrors.KindInvalidInput, "wrappers.Validated.Get", "",
			"document id must not be the zero value", nil).WithSub(kerrors.SubID)
	}
	return v.inner.Get(ctx, id)
}

func (v *Validated) Delete(ctx context.Context, id kota.DocID) error {
	if id.IsZero() {
		return kerrors.New(kerrors.KindInvalidInput, "wrappers.Validated.Delete", "",
			"document id must not be the zero value", nil).WithSub(kerrors.SubID)
	}
	return v.inner.Delete(ctx, id)
}

func (v *Validated) ListAll(ctx context.Context) ([]kota.Document, error) { return v.inner.ListAll(ctx) }
func (v *Validated) Flush() error                                        { return v.inner.Flush() }
func (v *Validated) Sync() error                                         { return v.inner.Sync() }
func (v *Validated) Close() error                                        { return v.inner.Close() }
