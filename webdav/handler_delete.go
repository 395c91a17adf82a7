// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"net/http"
	"os"

	"github.com/kurenai-dav/touka"
)

// handleDelete implements DELETE (spec.md §4.5). Deleting the root
// collection is always refused. A collection delete that finds a locked
// descendant leaves that descendant (and everything under it) in place and
// reports it as a 403 entry in a 207 Multi-Status, per RFC 4918 §9.6.1; a
// clean delete is 204.
func (h *Handler) handleDelete(c *touka.Context, cache *statCache, res *resource) {
	if res.Kind == kindNull {
		h.writeErr(c, newDAVError(KindNotFound, "Not found"))
		return
	}
	if res.Path == "/" {
		h.writeErr(c, newDAVError(KindPathForbidden, "Cannot delete the root collection"))
		return
	}

	token := extractLockToken(c.GetReqHeader("If"))
	if token == "" {
		token = extractLockToken(c.GetReqHeader("Lock-Token"))
	}

	var failures []statusEntry
	if err := h.deleteTree(c, res.Path, token, &failures); err != nil && len(failures) == 0 {
		h.writeErr(c, asDAVError(err))
		return
	}

	h.Properties.RemoveAll(res.Path)
	if h.Locks != nil {
		if locks, err := h.Locks.LocksFor(res.Path); err == nil {
			for _, l := range locks {
				h.Locks.Remove(l.Token)
			}
		}
	}
	cache.invalidate(res.Path)

	if len(failures) > 0 {
		c.SetHeader("Content-Type", "application/xml; charset=utf-8")
		c.Status(http.StatusMultiStatus)
		writeStatusMultistatus(c.Writer, failures)
		return
	}
	c.Status(http.StatusNoContent)
}

// deleteTree removes path, recursing into collections. A child this
// handler's lock gate would block (a descendant locked by a token the
// request doesn't hold) is left untouched and recorded as a 403 entry
// instead of being removed, along with everything under it.
func (h *Handler) deleteTree(c *touka.Context, path string, token string, failures *[]statusEntry) error {
	info, err := h.FileSystem.Stat(c.Context(), path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return h.FileSystem.RemoveAll(c.Context(), path)
	}

	f, err := h.FileSystem.OpenFile(c.Context(), path, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	children, err := f.Readdir(0)
	f.Close()
	if err != nil {
		return err
	}

	blocked := false
	for _, child := range children {
		childPath := joinInternal(path, child.Name())
		if h.Locks != nil {
			if ok, lerr := h.Locks.CanModify(childPath, token); lerr == nil && !ok {
				*failures = append(*failures, statusEntry{
					Href:   hrefForPath(h.Prefix, childPath, child.IsDir()),
					Status: http.StatusForbidden,
				})
				blocked = true
				continue
			}
		}
		if err := h.deleteTree(c, childPath, token, failures); err != nil {
			blocked = true
		}
	}
	if blocked {
		return nil
	}
	return h.FileSystem.RemoveAll(c.Context(), path)
}
