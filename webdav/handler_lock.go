// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kurenai-dav/touka"
)

// parseTimeoutHeader parses a Timeout header ("Second-123", "Infinite", a
// comma-separated preference list, or absent) into a duration and whether
// the client asked for no expiry, per RFC 4918 §10.7.
func parseTimeoutHeader(header string, def time.Duration) (time.Duration, bool) {
	if header == "" {
		return def, false
	}
	for _, field := range strings.Split(header, ",") {
		field = strings.TrimSpace(field)
		if strings.EqualFold(field, "Infinite") {
			return 0, true
		}
		if rest, ok := strings.CutPrefix(field, "Second-"); ok {
			if n, err := strconv.ParseInt(rest, 10, 64); err == nil && n > 0 {
				return time.Duration(n) * time.Second, false
			}
		}
	}
	return def, false
}

// handleLock implements LOCK (spec.md §4.5): creates a new lock, or
// refreshes an existing one when the If header carries a token this
// request already holds.
func (h *Handler) handleLock(c *touka.Context, cache *statCache, res *resource) {
	if h.Locks == nil {
		h.writeErr(c, newDAVError(KindMethodNotAllowed, "Locking is disabled"))
		return
	}

	timeout, noExpiry := parseTimeoutHeader(c.GetReqHeader("Timeout"), h.LockTimeoutDefault)

	if token := extractLockToken(c.GetReqHeader("If")); token != "" {
		existing, err := h.Locks.Get(token)
		if err != nil {
			h.writeErr(c, asDAVError(err))
			return
		}
		if existing == nil || !covers(existing.Path, existing.Depth, res.Path) {
			h.writeErr(c, newDAVError(KindETagMismatch, "No lock with that token covers this resource"))
			return
		}
		l, err := h.Locks.Refresh(token, timeout, noExpiry)
		if err != nil {
			h.writeErr(c, asDAVError(err))
			return
		}
		if l == nil {
			h.writeErr(c, newDAVError(KindETagMismatch, "No such lock"))
			return
		}
		c.SetHeader("Content-Type", "application/xml; charset=utf-8")
		c.Status(http.StatusOK)
		writeLockDiscovery(c.Writer, l, hrefForPath(h.Prefix, l.Path, false))
		return
	}

	scope, owner, err := parseLockInfoBody(c.Request.Body)
	if err != nil {
		h.writeErr(c, err)
		return
	}

	depth := DepthZero
	if c.GetReqHeader("Depth") == "infinity" {
		depth = DepthInfinity
	}

	l, err := h.Locks.Create(res.Path, scope, owner, timeout, noExpiry, depth)
	if err != nil {
		h.writeErr(c, asDAVError(err))
		return
	}

	c.SetHeader("Content-Type", "application/xml; charset=utf-8")
	c.SetHeader("Lock-Token", "<"+l.Token+">")
	status := http.StatusOK
	if res.Kind == kindNull {
		status = http.StatusCreated
		cache.invalidate(res.Path)
	}
	c.Status(status)
	writeLockDiscovery(c.Writer, l, hrefForPath(h.Prefix, l.Path, false))
}

// handleUnlock implements UNLOCK (spec.md §4.5).
func (h *Handler) handleUnlock(c *touka.Context, res *resource) {
	if h.Locks == nil {
		h.writeErr(c, newDAVError(KindMethodNotAllowed, "Locking is disabled"))
		return
	}
	token := extractLockToken(c.GetReqHeader("Lock-Token"))
	if token == "" {
		h.writeErr(c, newDAVError(KindBadRequest, "Lock-Token header required"))
		return
	}
	ok, err := h.Locks.Remove(token)
	if err != nil {
		h.writeErr(c, asDAVError(err))
		return
	}
	if !ok {
		h.writeErr(c, newDAVError(KindConflict, "No such lock"))
		return
	}
	c.Status(http.StatusNoContent)
}
