// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"mime"
	"net/http"
	"os"
	"path"

	"github.com/kurenai-dav/touka"
)

// maxPropfindDepth bounds an "infinity" PROPFIND's recursion, per spec.md
// §4.2's depth ceiling, so a pathological tree can't turn one request into
// an unbounded walk.
const maxPropfindDepth = 10

var liveDAVNames = []string{
	"resourcetype", "getcontentlength", "getlastmodified", "getcontenttype",
	"creationdate", "displayname", "supportedlock", "lockdiscovery", "getetag",
}

// handlePropfind implements PROPFIND (spec.md §4.2): reports live and dead
// properties for the target and, per Depth, its children.
func (h *Handler) handlePropfind(c *touka.Context, cache *statCache, res *resource) {
	if res.Kind == kindNull {
		h.writeErr(c, newDAVError(KindNotFound, "Not found"))
		return
	}

	pf, err := parsePropfindBody(c.Request.Body, c.Request.ContentLength)
	if err != nil {
		h.writeErr(c, err)
		return
	}

	depth := c.GetReqHeader("Depth")
	if depth == "" {
		depth = "infinity"
	}

	var entries []responseEntry
	entries = append(entries, h.propfindEntry(c, res, pf))

	if res.Kind == kindCollection && depth != "0" {
		limit := 1
		if depth == "infinity" {
			limit = maxPropfindDepth
		}
		h.walkPropfind(c, cache, res.Path, pf, limit, &entries)
	}

	c.SetHeader("Content-Type", "application/xml; charset=utf-8")
	c.Status(http.StatusMultiStatus)
	writeMultistatus(c.Writer, entries)
}

func (h *Handler) walkPropfind(c *touka.Context, cache *statCache, path string, pf *propfindRequest, depth int, entries *[]responseEntry) {
	if depth <= 0 {
		return
	}
	f, err := h.FileSystem.OpenFile(c.Context(), path, os.O_RDONLY, 0)
	if err != nil {
		return
	}
	children, err := f.Readdir(0)
	f.Close()
	if err != nil {
		return
	}
	for _, child := range children {
		childPath := joinInternal(path, child.Name())
		res, err := cache.classify(childPath)
		if err != nil {
			continue
		}
		*entries = append(*entries, h.propfindEntry(c, res, pf))
		if res.Kind == kindCollection {
			h.walkPropfind(c, cache, childPath, pf, depth-1, entries)
		}
	}
}

func (h *Handler) propfindEntry(c *touka.Context, res *resource, pf *propfindRequest) responseEntry {
	href := hrefForPath(h.Prefix, res.Path, res.Kind == kindCollection)
	entry := responseEntry{Href: href}

	dead, _ := h.Properties.GetAll(res.Path)

	switch {
	case pf.PropName:
		for _, name := range liveDAVNames {
			entry.Props = append(entry.Props, propOutcome{Name: QName{Name: name}, Status: http.StatusOK})
		}
		for q := range dead {
			entry.Props = append(entry.Props, propOutcome{Name: q, Status: http.StatusOK})
		}
	case pf.AllProp:
		for _, name := range liveDAVNames {
			entry.Props = append(entry.Props, h.liveProp(res, name))
		}
		for q, p := range dead {
			entry.Props = append(entry.Props, propOutcome{Name: q, Status: http.StatusOK, Value: p.Value})
		}
	default:
		for _, name := range pf.Names {
			if name.Namespace == "" || name.Namespace == davNamespace {
				if isLiveName(name.Name) {
					entry.Props = append(entry.Props, h.liveProp(res, name.Name))
					continue
				}
			}
			if p, ok := dead[name]; ok {
				entry.Props = append(entry.Props, propOutcome{Name: name, Status: http.StatusOK, Value: p.Value})
			} else {
				entry.Props = append(entry.Props, propOutcome{Name: name, Status: http.StatusNotFound})
			}
		}
	}
	return entry
}

func isLiveName(name string) bool {
	for _, n := range liveDAVNames {
		if n == name {
			return true
		}
	}
	return false
}

func (h *Handler) liveProp(res *resource, name string) propOutcome {
	qn := QName{Name: name}
	switch name {
	case "resourcetype":
		return propOutcome{Name: qn, Status: http.StatusOK, IsResourceTypeCollection: res.Kind == kindCollection}
	case "getcontentlength":
		if res.Kind == kindCollection {
			return propOutcome{Name: qn, Status: http.StatusNotFound}
		}
		return propOutcome{Name: qn, Status: http.StatusOK, Value: itoa64(res.Info.Size())}
	case "getlastmodified":
		return propOutcome{Name: qn, Status: http.StatusOK, Value: res.Info.ModTime().UTC().Format(http.TimeFormat)}
	case "getcontenttype":
		if res.Kind == kindCollection {
			return propOutcome{Name: qn, Status: http.StatusOK, Value: "httpd/unix-directory"}
		}
		ctype := mime.TypeByExtension(path.Ext(res.Path))
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		return propOutcome{Name: qn, Status: http.StatusOK, Value: ctype}
	case "creationdate":
		return propOutcome{Name: qn, Status: http.StatusOK, Value: res.Info.ModTime().UTC().Format(http.TimeFormat)}
	case "displayname":
		return propOutcome{Name: qn, Status: http.StatusOK, Value: baseName(res.Path)}
	case "supportedlock":
		return propOutcome{Name: qn, Status: http.StatusNotFound}
	case "lockdiscovery":
		return propOutcome{Name: qn, Status: http.StatusNotFound}
	case "getetag":
		if res.Kind == kindCollection {
			return propOutcome{Name: qn, Status: http.StatusNotFound}
		}
		return propOutcome{Name: qn, Status: http.StatusOK, Value: computeETag(res.Info.Size(), mtimeMillis(res.Info), res.Path)}
	default:
		return propOutcome{Name: qn, Status: http.StatusNotFound}
	}
}

func baseName(internalPath string) string {
	if internalPath == "/" {
		return "/"
	}
	idx := lastSlash(internalPath)
	return internalPath[idx+1:]
}
