// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import "time"

// Config is the full set of knobs an engine is constructed from (spec.md
// §6). Only FileSystem is required; everything else has a safe zero-config
// default applied by Register/Serve.
type Config struct {
	// Prefix is the URL mount point, e.g. "/dav". "" and "/" are equivalent
	// to mounting at the root.
	Prefix string

	FileSystem FileSystem

	// PropertyBackend selects the PropertyStore when Properties is nil:
	// "memory" (default), "file" (sidecar JSON files next to FileSystem),
	// or "bbolt" (single database file at BoltPath).
	PropertyBackend string
	Properties      PropertyStore

	// LockBackend selects the LockStore when Locks is nil: "memory"
	// (default) or "bbolt".
	LockBackend string
	Locks       LockStore

	// BoltPath is the database file bbolt-backed stores open when neither
	// Properties nor Locks is supplied directly.
	BoltPath string
	// FileStoreRoot is the directory FilePropertyStore anchors sidecar
	// files to; defaults to the OSFS root when FileSystem is an *OSFS.
	FileStoreRoot string

	ReadOnly       bool
	MaxUploadBytes int64

	Auth       Authenticator
	Authorizer Authorizer

	MaxConcurrent  int
	RequestsPerSec float64
	RateLimitBurst int

	Metrics MetricsSink

	// LockTimeoutDefault is used when a LOCK request's Timeout header is
	// absent or carries no value that parses; "Infinite" is always honored.
	LockTimeoutDefault time.Duration
}

func (c *Config) fillDefaults() {
	if c.PropertyBackend == "" {
		c.PropertyBackend = "memory"
	}
	if c.LockBackend == "" {
		c.LockBackend = "memory"
	}
	if c.Auth == nil {
		c.Auth = NoAuth{}
	}
	if c.Authorizer == nil {
		c.Authorizer = AllowAllAuthorizer{}
	}
	if c.Metrics == nil {
		c.Metrics = NoopMetrics{}
	}
	if c.LockTimeoutDefault <= 0 {
		c.LockTimeoutDefault = 10 * time.Minute
	}
	if c.FileStoreRoot == "" {
		if osfs, ok := c.FileSystem.(*OSFS); ok {
			c.FileStoreRoot = osfs.RootDir
		}
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 20
	}
}

func (c *Config) buildProperties() (PropertyStore, error) {
	if c.Properties != nil {
		return c.Properties, nil
	}
	switch c.PropertyBackend {
	case "file":
		return NewFilePropertyStore(c.FileStoreRoot), nil
	case "bbolt":
		return OpenBoltPropertyStore(c.BoltPath)
	default:
		return NewMemoryPropertyStore(), nil
	}
}

func (c *Config) buildLocks() (LockStore, error) {
	if c.Locks != nil {
		return c.Locks, nil
	}
	switch c.LockBackend {
	case "bbolt":
		return OpenBoltLockStore(c.BoltPath)
	default:
		return NewMemoryLockStore(), nil
	}
}
