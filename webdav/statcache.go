// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"context"
	"time"
)

// statCache memoizes classify() results for the lifetime of a single
// request (spec.md §4.9/§9: request-scoped, never shared across requests,
// so a 1s TTL is only a safety net against a handler holding the cache
// across an unusually long-running request, not a cross-request cache).
type statCache struct {
	fs      FileSystem
	ctx     context.Context
	entries map[string]statEntry
}

type statEntry struct {
	res    *resource
	err    error
	stored time.Time
}

const statCacheTTL = time.Second

func newStatCache(fs FileSystem, ctx context.Context) *statCache {
	return &statCache{fs: fs, ctx: ctx, entries: make(map[string]statEntry)}
}

func (c *statCache) classify(path string) (*resource, error) {
	if e, ok := c.entries[path]; ok && time.Since(e.stored) < statCacheTTL {
		return e.res, e.err
	}
	res, err := classify(c.fs, c.ctx, path)
	c.entries[path] = statEntry{res: res, err: err, stored: time.Now()}
	return res, err
}

// invalidate drops a cached entry after a mutation so a later classify()
// call within the same request observes the new state.
func (c *statCache) invalidate(path string) {
	delete(c.entries, path)
}
