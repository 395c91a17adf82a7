// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"context"
	"os"
)

// resourceKind classifies a path from a single Stat call (spec.md §3 and
// §9's "resource variant" design note), replacing a File/Collection class
// hierarchy with one tagged union every handler switches on.
type resourceKind int

const (
	kindFile resourceKind = iota
	kindCollection
	kindNull
)

// resource is the classified result of resolving an internal path: either
// an existing file, an existing collection, or a null resource (nothing
// there yet, but the parent exists so PUT/MKCOL may create it).
type resource struct {
	Kind         resourceKind
	Path         string
	Info         ObjectInfo // nil when Kind == kindNull
	ParentExists bool
}

// classify stats path and, for a null result, also checks that its parent
// collection exists -- MKCOL and PUT both need that fact and doing it once
// here avoids a second Stat call per handler (spec.md §4.9 dispatch order:
// classify happens once, before method lookup).
func classify(fs FileSystem, ctx context.Context, path string) (*resource, error) {
	info, err := fs.Stat(ctx, path)
	if err == nil {
		kind := kindFile
		if info.IsDir() {
			kind = kindCollection
		}
		return &resource{Kind: kind, Path: path, Info: info}, nil
	}
	if !os.IsNotExist(err) {
		return nil, newDAVError(KindInternal, err.Error())
	}

	parent := parentOf(path)
	_, parentErr := fs.Stat(ctx, parent)
	return &resource{
		Kind:         kindNull,
		Path:         path,
		ParentExists: parentErr == nil,
	}, nil
}

func parentOf(internalPath string) string {
	if internalPath == "/" {
		return "/"
	}
	idx := lastSlash(internalPath)
	if idx <= 0 {
		return "/"
	}
	return internalPath[:idx]
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}
