// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLockStore is an in-process LockStore, the default lock_backend from
// spec.md §6's Config. It mirrors the teacher's MemLock sweep idiom (ticker
// plus stop channel) but adds the coverage/conflict rules spec.md §4.5
// needs: locks can cover a whole subtree, and an exclusive lock on any path
// in that subtree conflicts with a new lock request.
type MemoryLockStore struct {
	mu       sync.Mutex
	byToken  map[string]*Lock
	byPath   map[string][]string // path -> tokens rooted exactly at path
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryLockStore creates an empty in-memory lock store and starts its
// background expiry sweep.
func NewMemoryLockStore() *MemoryLockStore {
	s := &MemoryLockStore{
		byToken: make(map[string]*Lock),
		byPath:  make(map[string][]string),
		stop:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

func (s *MemoryLockStore) sweep() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.RemoveExpired()
		case <-s.stop:
			return
		}
	}
}

// coveringLocked returns every non-expired lock in the store that covers p
// (a lock on p itself, or a depth-infinity lock on an ancestor). Create
// applies the conflict rule to this set: spec.md §4.5 treats shared locks
// as non-conflicting with each other but an exclusive request always
// conflicts with any pre-existing lock touching the path.
func (s *MemoryLockStore) coveringLocked(p string, now time.Time) []*Lock {
	var out []*Lock
	for _, l := range s.byToken {
		if l.expired(now) {
			continue
		}
		if covers(l.Path, l.Depth, p) {
			out = append(out, l)
		}
	}
	return out
}

func (s *MemoryLockStore) Create(path string, scope LockScope, owner string, timeout time.Duration, noExpiry bool, depth int) (*Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()

	for _, existing := range s.coveringLocked(path, now) {
		if scope == ScopeExclusive || existing.Scope == ScopeExclusive {
			return nil, ErrLockConflict
		}
	}

	l := &Lock{
		Token:    "opaquelocktoken:" + uuid.NewString(),
		Path:     path,
		Scope:    scope,
		Owner:    owner,
		Created:  now,
		Depth:    depth,
		NoExpiry: noExpiry,
	}
	if !noExpiry {
		l.Expires = now.Add(timeout)
	}
	s.byToken[l.Token] = l
	s.byPath[path] = append(s.byPath[path], l.Token)
	return l, nil
}

func (s *MemoryLockStore) Get(token string) (*Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byToken[token]
	if !ok || l.expired(time.Now()) {
		return nil, nil
	}
	return l, nil
}

func (s *MemoryLockStore) LocksFor(path string) ([]*Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coveringLocked(path, time.Now()), nil
}

func (s *MemoryLockStore) Refresh(token string, timeout time.Duration, noExpiry bool) (*Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byToken[token]
	if !ok || l.expired(time.Now()) {
		return nil, nil
	}
	l.NoExpiry = noExpiry
	if noExpiry {
		l.Expires = time.Time{}
	} else {
		l.Expires = time.Now().Add(timeout)
	}
	return l, nil
}

func (s *MemoryLockStore) Remove(token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byToken[token]
	if !ok {
		return false, nil
	}
	delete(s.byToken, token)
	tokens := s.byPath[l.Path]
	for i, t := range tokens {
		if t == token {
			s.byPath[l.Path] = append(tokens[:i], tokens[i+1:]...)
			break
		}
	}
	if len(s.byPath[l.Path]) == 0 {
		delete(s.byPath, l.Path)
	}
	return true, nil
}

func (s *MemoryLockStore) RemoveExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for token, l := range s.byToken {
		if l.expired(now) {
			delete(s.byToken, token)
			tokens := s.byPath[l.Path]
			for i, t := range tokens {
				if t == token {
					s.byPath[l.Path] = append(tokens[:i], tokens[i+1:]...)
					break
				}
			}
			if len(s.byPath[l.Path]) == 0 {
				delete(s.byPath, l.Path)
			}
		}
	}
}

func (s *MemoryLockStore) IsLocked(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.coveringLocked(path, time.Now())) > 0, nil
}

func (s *MemoryLockStore) CanModify(path string, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.coveringLocked(path, time.Now()) {
		if l.Token != token {
			return false, nil
		}
	}
	return true, nil
}

func (s *MemoryLockStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}
