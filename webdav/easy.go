// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"github.com/kurenai-dav/touka"
)

var webdavMethods = []string{
	"OPTIONS", "GET", "HEAD", "PUT", "DELETE", "MKCOL", "COPY", "MOVE", "PROPFIND", "PROPPATCH", "LOCK", "UNLOCK",
}

// Register builds a Handler from cfg and mounts it on engine at cfg.Prefix.
func Register(engine *touka.Engine, cfg *Config) (*Handler, error) {
	handler, err := NewHandler(cfg)
	if err != nil {
		return nil, err
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "/"
	}
	pattern := prefix
	if pattern == "/" {
		pattern = "/*path"
	} else {
		pattern = prefix + "/*path"
	}
	engine.HandleFunc(webdavMethods, pattern, handler.ServeTouka)
	return handler, nil
}

// Serve is the zero-config entry point: serves rootDir from the local
// filesystem at prefix with every other setting defaulted.
func Serve(engine *touka.Engine, prefix string, rootDir string) (*Handler, error) {
	fs, err := NewOSFS(rootDir)
	if err != nil {
		return nil, err
	}
	return Register(engine, &Config{Prefix: prefix, FileSystem: fs})
}
