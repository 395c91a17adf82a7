// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/WJQSERVER-STUDIO/go-utils/iox"
	"github.com/kurenai-dav/touka"
)

// handlePut implements PUT (spec.md §4.4): create or fully replace a
// resource's content. Against an *OSFS it writes to a sibling temp file and
// renames over the target, so a failed or interrupted upload never leaves a
// half-written resource in place; other FileSystem implementations fall
// back to opening the destination directly.
func (h *Handler) handlePut(c *touka.Context, cache *statCache, res *resource) {
	if res.Kind == kindCollection {
		h.writeErr(c, newDAVError(KindMethodNotAllowed, "Cannot PUT to a collection"))
		return
	}

	existed := res.Kind == kindFile

	var err error
	if osfs, ok := h.FileSystem.(*OSFS); ok {
		err = putAtomic(c, osfs, res.Path)
	} else {
		err = putDirect(c, h.FileSystem, res.Path)
	}
	if err != nil {
		h.writeErr(c, asDAVError(err))
		return
	}

	cache.invalidate(res.Path)
	if existed {
		c.Status(http.StatusNoContent)
	} else {
		c.Status(http.StatusCreated)
	}
}

func putDirect(c *touka.Context, fs FileSystem, path string) error {
	f, err := fs.OpenFile(c.Context(), path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = iox.Copy(f, c.Request.Body)
	return err
}

func putAtomic(c *touka.Context, fs *OSFS, path string) error {
	target, err := fs.AbsPath(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := iox.Copy(tmp, c.Request.Body); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
