// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"context"
	"io"
	"os"
	"time"
)

// FileSystem is the directory/file abstraction the engine serves. It is a
// collaborator per spec.md §1 ("Out of scope: the filesystem abstraction");
// the engine never assumes a concrete backend.
type FileSystem interface {
	Mkdir(ctx context.Context, name string, perm os.FileMode) error
	OpenFile(ctx context.Context, name string, flag int, perm os.FileMode) (File, error)
	RemoveAll(ctx context.Context, name string) error
	Rename(ctx context.Context, oldName, newName string) error
	Stat(ctx context.Context, name string) (ObjectInfo, error)
}

// File is a file-like object. It embeds io.Seeker so range requests (spec.md
// §4.3) can be served without buffering the whole resource.
type File interface {
	io.Closer
	io.Reader
	io.Seeker
	io.Writer
	Readdir(count int) ([]ObjectInfo, error)
	Stat() (ObjectInfo, error)
}

// ObjectInfo mirrors os.FileInfo so real os.FileInfo values satisfy it
// directly, while still allowing non-OS backends (MemFS) to implement it.
type ObjectInfo interface {
	Name() string
	Size() int64
	Mode() os.FileMode
	ModTime() time.Time
	IsDir() bool
	Sys() interface{}
}

// mtimeMillis normalizes an ObjectInfo's modification time to milliseconds
// for the ETag computer (spec.md §4.2 and §3).
func mtimeMillis(info ObjectInfo) int64 {
	return info.ModTime().UnixMilli()
}
