// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"net/http"

	"github.com/kurenai-dav/touka"
)

// handleProppatch implements PROPPATCH (spec.md §4.3): applies every set
// and remove operation to the dead property store independently, per
// property. Live (DAV:) property names are rejected with a 403 outcome for
// that name and never applied; every other op in the same request still
// goes through on its own merits, per RFC 4918 §9.2.1.
func (h *Handler) handleProppatch(c *touka.Context, res *resource) {
	if res.Kind == kindNull {
		h.writeErr(c, newDAVError(KindNotFound, "Not found"))
		return
	}

	ops, err := parseProppatchBody(c.Request.Body)
	if err != nil {
		h.writeErr(c, err)
		return
	}

	var outcomes []propOutcome
	for _, op := range ops {
		if op.Name.Namespace == "" || op.Name.Namespace == davNamespace {
			if isLiveName(op.Name.Name) {
				outcomes = append(outcomes, propOutcome{Name: op.Name, Status: http.StatusForbidden})
				continue
			}
		}
		if op.Remove {
			h.Properties.Remove(res.Path, op.Name.Namespace, op.Name.Name)
		} else {
			h.Properties.Set(res.Path, Property{Namespace: op.Name.Namespace, Name: op.Name.Name, Value: op.Value})
		}
		outcomes = append(outcomes, propOutcome{Name: op.Name, Status: http.StatusOK})
	}

	href := hrefForPath(h.Prefix, res.Path, res.Kind == kindCollection)
	c.SetHeader("Content-Type", "application/xml; charset=utf-8")
	c.Status(http.StatusMultiStatus)
	writeMultistatus(c.Writer, []responseEntry{{Href: href, Props: outcomes}})
}
