// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"net/http"
	"os"

	"github.com/WJQSERVER-STUDIO/go-utils/iox"
	"github.com/kurenai-dav/touka"
)

// resolveDestination parses and validates the Destination header shared by
// COPY and MOVE (spec.md §4.7), rejecting a destination identical to the
// source and a collection destination that doesn't respect Overwrite.
func (h *Handler) resolveDestination(c *touka.Context, src *resource) (*destinationTarget, *resource, bool, *DAVError) {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	dest, err := parseDestination(c.GetReqHeader("Destination"), scheme, c.Request.Host, h.Prefix)
	if err != nil {
		return nil, nil, false, asDAVError(err)
	}
	if dest.InternalPath == src.Path {
		return nil, nil, false, newDAVError(KindSameSourceDestination, "Source and destination are the same")
	}

	destRes, err := classify(h.FileSystem, c.Context(), dest.InternalPath)
	if err != nil {
		return nil, nil, false, asDAVError(err)
	}

	overwrite := c.GetReqHeader("Overwrite") != "F"
	if destRes.Kind != kindNull && !overwrite {
		return nil, nil, false, newDAVError(KindDestinationExists, "Destination exists and Overwrite is F")
	}
	if destRes.Kind == kindNull && !destRes.ParentExists {
		return nil, nil, false, newDAVError(KindMissingParent, "Destination's parent collection does not exist")
	}
	return dest, destRes, destRes.Kind != kindNull, nil
}

// handleCopy implements COPY (spec.md §4.7), recursing into collections and
// reporting per-child failures as a 207 Multi-Status. Depth must be 0
// (target directory and its own properties only) or infinity (the default);
// any other value is rejected.
func (h *Handler) handleCopy(c *touka.Context, cache *statCache, res *resource) {
	depth := c.GetReqHeader("Depth")
	if depth != "" && depth != "0" && depth != "infinity" {
		h.writeErr(c, newDAVError(KindBadRequest, "Depth must be 0 or infinity"))
		return
	}

	dest, _, existed, derr := h.resolveDestination(c, res)
	if derr != nil {
		h.writeErr(c, derr)
		return
	}

	var failures []statusEntry
	if res.Kind == kindCollection && depth == "0" {
		h.copyShallow(c, res.Path, dest.InternalPath, &failures)
	} else {
		h.copyTree(c, res.Path, dest.InternalPath, &failures)
	}
	cache.invalidate(dest.InternalPath)

	if len(failures) > 0 {
		c.SetHeader("Content-Type", "application/xml; charset=utf-8")
		c.Status(http.StatusMultiStatus)
		writeStatusMultistatus(c.Writer, failures)
		return
	}
	h.stampCreated(c, cache, dest.InternalPath, existed)
}

// copyShallow implements a Depth: 0 COPY of a collection: only the target
// directory and its dead properties are created, no children are copied.
func (h *Handler) copyShallow(c *touka.Context, src, dest string, failures *[]statusEntry) {
	info, err := h.FileSystem.Stat(c.Context(), src)
	if err != nil {
		*failures = append(*failures, statusEntry{Href: hrefForPath(h.Prefix, src, true), Status: http.StatusNotFound})
		return
	}
	if err := h.Properties.Copy(src, dest); err != nil {
		*failures = append(*failures, statusEntry{Href: hrefForPath(h.Prefix, src, true), Status: http.StatusInternalServerError})
	}
	if err := h.FileSystem.Mkdir(c.Context(), dest, info.Mode()); err != nil && !os.IsExist(err) {
		*failures = append(*failures, statusEntry{Href: hrefForPath(h.Prefix, src, true), Status: http.StatusInternalServerError})
	}
}

// stampCreated stamps the Location header (and, for a file destination,
// ETag/Last-Modified) and writes 201 Created for a new resource or 204 No
// Content when Overwrite replaced an existing one, per spec.md §4.6/§4.7.
func (h *Handler) stampCreated(c *touka.Context, cache *statCache, destPath string, existed bool) {
	if existed {
		c.Status(http.StatusNoContent)
		return
	}
	if destRes, err := cache.classify(destPath); err == nil {
		c.SetHeader("Location", hrefForPath(h.Prefix, destPath, destRes.Kind == kindCollection))
		if destRes.Kind == kindFile {
			c.SetHeader("ETag", computeETag(destRes.Info.Size(), mtimeMillis(destRes.Info), destPath))
			c.SetHeader("Last-Modified", destRes.Info.ModTime().UTC().Format(http.TimeFormat))
		}
	}
	c.Status(http.StatusCreated)
}

func (h *Handler) copyTree(c *touka.Context, src, dest string, failures *[]statusEntry) {
	info, err := h.FileSystem.Stat(c.Context(), src)
	if err != nil {
		*failures = append(*failures, statusEntry{Href: hrefForPath(h.Prefix, src, false), Status: http.StatusNotFound})
		return
	}

	if err := h.Properties.Copy(src, dest); err != nil {
		*failures = append(*failures, statusEntry{Href: hrefForPath(h.Prefix, src, info.IsDir()), Status: http.StatusInternalServerError})
	}

	if !info.IsDir() {
		if err := copyFile(c, h.FileSystem, src, dest, info.Mode()); err != nil {
			*failures = append(*failures, statusEntry{Href: hrefForPath(h.Prefix, src, false), Status: http.StatusInternalServerError})
		}
		return
	}

	if err := h.FileSystem.Mkdir(c.Context(), dest, info.Mode()); err != nil && !os.IsExist(err) {
		*failures = append(*failures, statusEntry{Href: hrefForPath(h.Prefix, src, true), Status: http.StatusInternalServerError})
		return
	}

	dir, err := h.FileSystem.OpenFile(c.Context(), src, os.O_RDONLY, 0)
	if err != nil {
		*failures = append(*failures, statusEntry{Href: hrefForPath(h.Prefix, src, true), Status: http.StatusInternalServerError})
		return
	}
	children, err := dir.Readdir(0)
	dir.Close()
	if err != nil {
		*failures = append(*failures, statusEntry{Href: hrefForPath(h.Prefix, src, true), Status: http.StatusInternalServerError})
		return
	}
	for _, child := range children {
		h.copyTree(c, joinInternal(src, child.Name()), joinInternal(dest, child.Name()), failures)
	}
}

func copyFile(c *touka.Context, fs FileSystem, src, dest string, mode os.FileMode) error {
	srcFile, err := fs.OpenFile(c.Context(), src, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer srcFile.Close()
	destFile, err := fs.OpenFile(c.Context(), dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer destFile.Close()
	_, err = iox.Copy(destFile, srcFile)
	return err
}

// handleMove implements MOVE (spec.md §4.7): same destination validation as
// COPY. It attempts a native FileSystem.Rename first; when that fails (for
// instance a cross-filesystem rename returning EXDEV) it falls back to a
// recursive copy followed by removing the source.
func (h *Handler) handleMove(c *touka.Context, cache *statCache, res *resource) {
	dest, _, existed, derr := h.resolveDestination(c, res)
	if derr != nil {
		h.writeErr(c, derr)
		return
	}

	if existed {
		if err := h.FileSystem.RemoveAll(c.Context(), dest.InternalPath); err != nil {
			h.writeErr(c, asDAVError(err))
			return
		}
	}

	if err := h.FileSystem.Rename(c.Context(), res.Path, dest.InternalPath); err != nil {
		var failures []statusEntry
		h.copyTree(c, res.Path, dest.InternalPath, &failures)
		if len(failures) > 0 {
			c.SetHeader("Content-Type", "application/xml; charset=utf-8")
			c.Status(http.StatusMultiStatus)
			writeStatusMultistatus(c.Writer, failures)
			return
		}
		if rmErr := h.FileSystem.RemoveAll(c.Context(), res.Path); rmErr != nil {
			h.writeErr(c, asDAVError(rmErr))
			return
		}
		h.Properties.RemoveAll(res.Path)
	} else {
		h.Properties.Move(res.Path, dest.InternalPath)
	}
	cache.invalidate(res.Path)
	cache.invalidate(dest.InternalPath)

	h.stampCreated(c, cache, dest.InternalPath, existed)
}
