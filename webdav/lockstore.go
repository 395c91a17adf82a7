// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"strings"
	"time"
)

// LockScope is the scope of a WebDAV lock (spec.md §3 "Lock").
type LockScope int

const (
	ScopeExclusive LockScope = iota
	ScopeShared
)

// Depth values for locks: either the lock covers only its own path (Zero),
// or it covers its path and every descendant (Infinity).
const (
	DepthZero     = 0
	DepthInfinity = -1
)

// Lock is one active WebDAV lock.
type Lock struct {
	Token    string
	Path     string
	Scope    LockScope
	Owner    string
	Created  time.Time
	Expires  time.Time // unused when NoExpiry is set ("Infinite").
	Depth    int
	NoExpiry bool
}

// expired reports whether the lock's TTL has elapsed. A lock with NoExpiry
// set never expires.
func (l *Lock) expired(now time.Time) bool {
	if l.NoExpiry {
		return false
	}
	return now.After(l.Expires)
}

// remaining returns the seconds left until expiry, used by the LOCK/refresh
// response's Timeout element.
func (l *Lock) remaining(now time.Time) int64 {
	if l.NoExpiry {
		return -1
	}
	d := l.Expires.Sub(now)
	if d < 0 {
		return 0
	}
	return int64(d.Seconds())
}

// covers implements spec.md §3's lock coverage rule: L covers P iff L==P,
// or L's depth is infinity and P is a descendant of L under "/".
func covers(lockPath string, depth int, p string) bool {
	if lockPath == p {
		return true
	}
	if depth != DepthInfinity {
		return false
	}
	prefix := lockPath
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return strings.HasPrefix(p, prefix)
}

// LockStore creates, refreshes, resolves and expires locks (spec.md §4.5).
// It owns lock records for the lifetime of the engine, including a
// background expiry sweep.
type LockStore interface {
	Create(path string, scope LockScope, owner string, timeout time.Duration, noExpiry bool, depth int) (*Lock, error)
	Get(token string) (*Lock, error)
	LocksFor(path string) ([]*Lock, error)
	Refresh(token string, timeout time.Duration, noExpiry bool) (*Lock, error)
	Remove(token string) (bool, error)
	RemoveExpired()
	IsLocked(path string) (bool, error)
	CanModify(path string, token string) (bool, error)
	Close() error
}

// ErrLockConflict is returned by Create when a covering lock already
// exists and is incompatible with the requested scope (spec.md §4.5).
var ErrLockConflict = newDAVError(KindLocked, "Resource is locked")
