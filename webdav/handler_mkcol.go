// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"net/http"

	"github.com/kurenai-dav/touka"
)

// handleMkcol implements MKCOL (spec.md §4.6): creates a new, empty
// collection. It refuses to create one over an existing resource or
// collection (405) and relies on the precondition pipeline having already
// rejected a missing parent (409).
func (h *Handler) handleMkcol(c *touka.Context, cache *statCache, res *resource) {
	if res.Kind != kindNull {
		h.writeErr(c, newDAVError(KindMethodNotAllowed, "Resource already exists"))
		return
	}
	if c.Request.ContentLength > 0 {
		h.writeErr(c, newDAVError(KindNotImplemented, "MKCOL does not accept a request body"))
		return
	}
	if err := h.FileSystem.Mkdir(c.Context(), res.Path, 0755); err != nil {
		h.writeErr(c, asDAVError(err))
		return
	}
	cache.invalidate(res.Path)
	c.SetHeader("Location", hrefForPath(h.Prefix, res.Path, true))
	c.Status(http.StatusCreated)
}
