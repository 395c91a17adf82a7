// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"path/filepath"
	"testing"
	"time"
)

func lockStores(t *testing.T) map[string]LockStore {
	t.Helper()
	dir := t.TempDir()

	boltStore, err := OpenBoltLockStore(filepath.Join(dir, "locks.db"))
	if err != nil {
		t.Fatalf("OpenBoltLockStore: %v", err)
	}
	t.Cleanup(func() { boltStore.Close() })

	mem := NewMemoryLockStore()
	t.Cleanup(func() { mem.Close() })

	return map[string]LockStore{
		"memory": mem,
		"bbolt":  boltStore,
	}
}

func TestCoversRule(t *testing.T) {
	if !covers("/a/b", DepthZero, "/a/b") {
		t.Error("a lock covers its own exact path")
	}
	if covers("/a/b", DepthZero, "/a/b/c") {
		t.Error("a depth-zero lock should not cover a descendant")
	}
	if !covers("/a/b", DepthInfinity, "/a/b/c") {
		t.Error("a depth-infinity lock should cover a descendant")
	}
	if covers("/a/b", DepthInfinity, "/a/bc") {
		t.Error("a depth-infinity lock on /a/b should not cover the sibling /a/bc")
	}
	if covers("/a/b", DepthInfinity, "/a/c") {
		t.Error("a depth-infinity lock should not cover an unrelated sibling")
	}
}

func TestLockExpiredAndRemaining(t *testing.T) {
	now := time.Now()
	l := &Lock{Expires: now.Add(time.Minute)}
	if l.expired(now) {
		t.Error("lock expiring in the future should not be expired")
	}
	if l.expired(now.Add(2 * time.Minute)) != true {
		t.Error("lock should be expired after its Expires time")
	}
	if r := l.remaining(now); r <= 0 || r > 60 {
		t.Errorf("remaining() = %d, want roughly 60", r)
	}

	noExpiry := &Lock{NoExpiry: true}
	if noExpiry.expired(now.Add(24 * time.Hour)) {
		t.Error("a NoExpiry lock should never expire")
	}
	if r := noExpiry.remaining(now); r != -1 {
		t.Errorf("NoExpiry remaining() = %d, want -1", r)
	}
}

func TestLockStoreCreateGetRemove(t *testing.T) {
	for name, store := range lockStores(t) {
		t.Run(name, func(t *testing.T) {
			l, err := store.Create("/a/b.txt", ScopeExclusive, "me", time.Minute, false, DepthZero)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if l.Token == "" {
				t.Fatal("expected a non-empty lock token")
			}

			got, err := store.Get(l.Token)
			if err != nil || got == nil {
				t.Fatalf("Get: %v, %v", got, err)
			}
			if got.Path != "/a/b.txt" {
				t.Errorf("got path %q", got.Path)
			}

			locked, err := store.IsLocked("/a/b.txt")
			if err != nil || !locked {
				t.Fatalf("IsLocked = %v, %v", locked, err)
			}

			ok, err := store.CanModify("/a/b.txt", l.Token)
			if err != nil || !ok {
				t.Fatalf("CanModify with the owning token should succeed: %v, %v", ok, err)
			}
			ok, err = store.CanModify("/a/b.txt", "wrong-token")
			if err != nil || ok {
				t.Fatalf("CanModify with a foreign token should fail: %v, %v", ok, err)
			}

			removed, err := store.Remove(l.Token)
			if err != nil || !removed {
				t.Fatalf("Remove: %v, %v", removed, err)
			}
			if locked, _ := store.IsLocked("/a/b.txt"); locked {
				t.Error("path should be unlocked after Remove")
			}
		})
	}
}

func TestLockStoreExclusiveConflict(t *testing.T) {
	for name, store := range lockStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Create("/col", ScopeExclusive, "me", time.Minute, false, DepthInfinity); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if _, err := store.Create("/col/child", ScopeExclusive, "other", time.Minute, false, DepthZero); err == nil {
				t.Error("an exclusive lock on a covered descendant should conflict")
			}
		})
	}
}

func TestLockStoreRefresh(t *testing.T) {
	for name, store := range lockStores(t) {
		t.Run(name, func(t *testing.T) {
			l, err := store.Create("/r.txt", ScopeExclusive, "me", time.Millisecond, false, DepthZero)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			refreshed, err := store.Refresh(l.Token, time.Hour, false)
			if err != nil || refreshed == nil {
				t.Fatalf("Refresh: %v, %v", refreshed, err)
			}
			if refreshed.remaining(time.Now()) < 1000 {
				t.Error("refreshed lock should have a long time remaining")
			}

			if refreshed, err := store.Refresh("nonexistent-token", time.Hour, false); err != nil || refreshed != nil {
				t.Errorf("Refresh on a missing token should return (nil, nil), got (%v, %v)", refreshed, err)
			}
		})
	}
}

func TestLockStoreRemoveExpired(t *testing.T) {
	for name, store := range lockStores(t) {
		t.Run(name, func(t *testing.T) {
			l, err := store.Create("/exp.txt", ScopeExclusive, "me", time.Nanosecond, false, DepthZero)
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			time.Sleep(10 * time.Millisecond)
			store.RemoveExpired()
			if got, _ := store.Get(l.Token); got != nil {
				t.Error("expired lock should have been removed by RemoveExpired")
			}
		})
	}
}
