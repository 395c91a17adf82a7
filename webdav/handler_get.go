// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"io"
	"net/http"
	"os"

	"github.com/kurenai-dav/touka"
)

// handleGetHead serves GET and HEAD (spec.md §4.3), honoring a single byte
// range and stamping Last-Modified on every response and ETag on file
// responses (collection responses carry no ETag).
func (h *Handler) handleGetHead(c *touka.Context, cache *statCache, res *resource, etag string) {
	if res.Kind == kindNull {
		h.writeErr(c, newDAVError(KindNotFound, "Not found"))
		return
	}
	if res.Kind == kindCollection {
		c.SetHeader("Last-Modified", res.Info.ModTime().UTC().Format(http.TimeFormat))
		c.SetHeader("Content-Length", "0")
		c.Status(http.StatusOK)
		return
	}

	f, err := h.FileSystem.OpenFile(c.Context(), res.Path, os.O_RDONLY, 0)
	if err != nil {
		h.writeErr(c, asDAVError(err))
		return
	}
	defer f.Close()

	c.SetHeader("ETag", etag)
	c.SetHeader("Last-Modified", res.Info.ModTime().UTC().Format(http.TimeFormat))
	c.SetHeader("Accept-Ranges", "bytes")

	size := res.Info.Size()

	if c.Request.Method == http.MethodHead {
		c.SetHeader("Content-Length", itoa64(size))
		c.Status(http.StatusOK)
		return
	}

	br, err := parseByteRange(c.GetReqHeader("Range"))
	if err != nil || br == nil {
		c.SetHeader("Content-Length", itoa64(size))
		c.Status(http.StatusOK)
		io.Copy(c.Writer, f)
		return
	}

	start, end, ok := br.resolve(size)
	if !ok {
		c.SetHeader("Content-Range", "bytes */"+itoa64(size))
		c.Status(http.StatusRequestedRangeNotSatisfiable)
		return
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		h.writeErr(c, newDAVError(KindInternal, err.Error()))
		return
	}

	length := end - start + 1
	c.SetHeader("Content-Range", "bytes "+itoa64(start)+"-"+itoa64(end)+"/"+itoa64(size))
	c.SetHeader("Content-Length", itoa64(length))
	c.Status(http.StatusPartialContent)
	io.CopyN(c.Writer, f, length)
}
