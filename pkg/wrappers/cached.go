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

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kotadb/kotadb/pkg/kota"
)

// Cached wraps a Backend with an in-memory LRU of Get results, sized for the
// read-heavy workloads spec §4.9 calls out (symbol lookups, path resolution
// re-fetching the same hot documents). Every write invalidates its id's
// entry rather than trying to keep the cache coherent in place.
type Cached struct {
	inner Backend
	cache *lru.Cache[kota.DocID, kota.Document]
}

// NewCached wraps inner with an LRU of at most size entries. size must be
// positive.
func NewCached(inner Backend, size int) (*Cached, error) {
	c, err := lru.New[kota.DocID, kota.Document](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: c}, nil
}

func (c *Cached) Insert(ctx context.Context, doc kota.Document) error {
	if err := c.inner.Insert(ctx, doc); err != nil {
		return err
	}
	c.cache.Remove(doc.ID)
	return nil
}

func (c *Cached) Update(ctx context.Context, doc kota.Document) error {
	if err := c.inner.Update(ctx, doc); err != nil {
		return err
	}
	c.cache.Remove(doc.ID)
	return nil
}

func (c *Cached) Get(ctx context.Context, id kota.DocID) (kota.Document, error) {
	if doc, ok := c.cache.Get(id); ok {
		return doc, nil
	}
	doc, err := c.inner.Get(ctx, id)
	if err != nil {
		return kota.Document{}, err
	}
	c.cache.Add(id, doc)
	return doc, nil
}

func (c *Cached) Delete(ctx context.Context, id kota.DocID) error {
	if err := c.inner.Delete(ctx, id); err != nil {
		return err
	}
	c.cache.Remove(id)
	return nil
}

// ListAll always goes to inner: caching the full listing would mean
// invalidating it on every write, which defeats the point of caching.
func (c *Cached) ListAll(ctx context.Context) ([]kota.Document, error) { return c.inner.ListAll(ctx) }

func (c *Cached) Flush() error { return c.inner.Flush() }
func (c *Cached) Sync() error  { return c.inner.Sync() }

// Close purges the cache before delegating, so a reused *Cached value after
// Close never serves stale entries.
func (c *Cached) Close() error {
	c.cache.Purge()
	return c.inner.Close()
}
