// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var lockBucket = []byte("locks")

// lockRecord is the JSON-on-disk shape for a Lock, stored twice per lock
// (spec.md §6): once under "lock:token:<token>" and once under
// "lock:path:<path>" holding the list of tokens rooted at that path.
type lockRecord struct {
	Token    string    `json:"token"`
	Path     string    `json:"path"`
	Scope    LockScope `json:"scope"`
	Owner    string    `json:"owner"`
	Created  time.Time `json:"created"`
	Expires  time.Time `json:"expires"`
	Depth    int       `json:"depth"`
	NoExpiry bool      `json:"no_expiry"`
}

func toRecord(l *Lock) lockRecord {
	return lockRecord{
		Token: l.Token, Path: l.Path, Scope: l.Scope, Owner: l.Owner,
		Created: l.Created, Expires: l.Expires, Depth: l.Depth, NoExpiry: l.NoExpiry,
	}
}

func fromRecord(r lockRecord) *Lock {
	return &Lock{
		Token: r.Token, Path: r.Path, Scope: r.Scope, Owner: r.Owner,
		Created: r.Created, Expires: r.Expires, Depth: r.Depth, NoExpiry: r.NoExpiry,
	}
}

func tokenKey(token string) []byte { return []byte("lock:token:" + token) }
func pathKey(path string) []byte   { return []byte("lock:path:" + path) }

// BoltLockStore is the persistent lock_backend from spec.md §6. It keeps an
// in-memory token->path index alongside the bbolt-backed records so
// coverage queries (which must scan every lock whose path is an ancestor of
// the queried path) don't require a full bucket scan per request.
type BoltLockStore struct {
	db *bolt.DB

	mu       sync.RWMutex
	pathOf   map[string]string // token -> path, mirrors the durable index
	stop     chan struct{}
	stopOnce sync.Once
}

// OpenBoltLockStore opens (creating if absent) a bbolt-backed lock store at
// dbPath and rebuilds its in-memory path index from the durable records.
func OpenBoltLockStore(dbPath string) (*BoltLockStore, error) {
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, err
	}
	s := &BoltLockStore{db: db, pathOf: make(map[string]string), stop: make(chan struct{})}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(lockBucket)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			if !hasPrefix(k, "lock:token:") {
				return nil
			}
			var r lockRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return nil
			}
			s.pathOf[r.Token] = r.Path
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	go s.sweep()
	return s, nil
}

func hasPrefix(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == prefix
}

func (s *BoltLockStore) sweep() {
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

func (s *BoltLockStore) getRecord(tx *bolt.Tx, token string) (*Lock, bool) {
	data := tx.Bucket(lockBucket).Get(tokenKey(token))
	if data == nil {
		return nil, false
	}
	var r lockRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, false
	}
	return fromRecord(r), true
}

func (s *BoltLockStore) putRecord(tx *bolt.Tx, l *Lock) error {
	data, err := json.Marshal(toRecord(l))
	if err != nil {
		return err
	}
	if err := tx.Bucket(lockBucket).Put(tokenKey(l.Token), data); err != nil {
		return err
	}
	return s.appendPathIndex(tx, l.Path, l.Token)
}

func (s *BoltLockStore) appendPathIndex(tx *bolt.Tx, path, token string) error {
	b := tx.Bucket(lockBucket)
	var tokens []string
	if data := b.Get(pathKey(path)); data != nil {
		json.Unmarshal(data, &tokens)
	}
	for _, t := range tokens {
		if t == token {
			return nil
		}
	}
	tokens = append(tokens, token)
	data, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	return b.Put(pathKey(path), data)
}

func (s *BoltLockStore) removePathIndex(tx *bolt.Tx, path, token string) error {
	b := tx.Bucket(lockBucket)
	var tokens []string
	if data := b.Get(pathKey(path)); data != nil {
		json.Unmarshal(data, &tokens)
	}
	out := tokens[:0]
	for _, t := range tokens {
		if t != token {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return b.Delete(pathKey(path))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return b.Put(pathKey(path), data)
}

// coveringTx returns every non-expired lock whose path covers p, scanning
// the in-memory token->path index rather than the bucket.
func (s *BoltLockStore) coveringTx(tx *bolt.Tx, p string, now time.Time) []*Lock {
	s.mu.RLock()
	tokens := make([]string, 0, len(s.pathOf))
	for token := range s.pathOf {
		tokens = append(tokens, token)
	}
	s.mu.RUnlock()

	var out []*Lock
	for _, token := range tokens {
		l, ok := s.getRecord(tx, token)
		if !ok || l.expired(now) {
			continue
		}
		if covers(l.Path, l.Depth, p) {
			out = append(out, l)
		}
	}
	return out
}

func (s *BoltLockStore) Create(path string, scope LockScope, owner string, timeout time.Duration, noExpiry bool, depth int) (*Lock, error) {
	var created *Lock
	err := s.db.Update(func(tx *bolt.Tx) error {
		now := time.Now()
		for _, existing := range s.coveringTx(tx, path, now) {
			if scope == ScopeExclusive || existing.Scope == ScopeExclusive {
				return ErrLockConflict
			}
		}
		l := &Lock{
			Token: "opaquelocktoken:" + uuid.NewString(), Path: path, Scope: scope,
			Owner: owner, Created: now, Depth: depth, NoExpiry: noExpiry,
		}
		if !noExpiry {
			l.Expires = now.Add(timeout)
		}
		if err := s.putRecord(tx, l); err != nil {
			return err
		}
		created = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.pathOf[created.Token] = created.Path
	s.mu.Unlock()
	return created, nil
}

func (s *BoltLockStore) Get(token string) (*Lock, error) {
	var l *Lock
	err := s.db.View(func(tx *bolt.Tx) error {
		rec, ok := s.getRecord(tx, token)
		if !ok || rec.expired(time.Now()) {
			return nil
		}
		l = rec
		return nil
	})
	return l, err
}

func (s *BoltLockStore) LocksFor(path string) ([]*Lock, error) {
	var out []*Lock
	err := s.db.View(func(tx *bolt.Tx) error {
		out = s.coveringTx(tx, path, time.Now())
		return nil
	})
	return out, err
}

func (s *BoltLockStore) Refresh(token string, timeout time.Duration, noExpiry bool) (*Lock, error) {
	var l *Lock
	err := s.db.Update(func(tx *bolt.Tx) error {
		rec, ok := s.getRecord(tx, token)
		if !ok || rec.expired(time.Now()) {
			return nil
		}
		rec.NoExpiry = noExpiry
		if noExpiry {
			rec.Expires = time.Time{}
		} else {
			rec.Expires = time.Now().Add(timeout)
		}
		if err := s.putRecord(tx, rec); err != nil {
			return err
		}
		l = rec
		return nil
	})
	return l, err
}

func (s *BoltLockStore) Remove(token string) (bool, error) {
	removed := false
	err := s.db.Update(func(tx *bolt.Tx) error {
		rec, ok := s.getRecord(tx, token)
		if !ok {
			return nil
		}
		if err := tx.Bucket(lockBucket).Delete(tokenKey(token)); err != nil {
			return err
		}
		if err := s.removePathIndex(tx, rec.Path, token); err != nil {
			return err
		}
		removed = true
		return nil
	})
	if removed {
		s.mu.Lock()
		delete(s.pathOf, token)
		s.mu.Unlock()
	}
	return removed, err
}

func (s *BoltLockStore) RemoveExpired() {
	s.mu.RLock()
	tokens := make([]string, 0, len(s.pathOf))
	for token := range s.pathOf {
		tokens = append(tokens, token)
	}
	s.mu.RUnlock()

	now := time.Now()
	for _, token := range tokens {
		gone := false
		s.db.Update(func(tx *bolt.Tx) error {
			rec, ok := s.getRecord(tx, token)
			if !ok {
				gone = true
				return nil
			}
			if !rec.expired(now) {
				return nil
			}
			if err := tx.Bucket(lockBucket).Delete(tokenKey(token)); err != nil {
				return err
			}
			if err := s.removePathIndex(tx, rec.Path, token); err != nil {
				return err
			}
			gone = true
			return nil
		})
		if gone {
			s.mu.Lock()
			delete(s.pathOf, token)
			s.mu.Unlock()
		}
	}
}

func (s *BoltLockStore) IsLocked(path string) (bool, error) {
	locks, err := s.LocksFor(path)
	return len(locks) > 0, err
}

func (s *BoltLockStore) CanModify(path string, token string) (bool, error) {
	locks, err := s.LocksFor(path)
	if err != nil {
		return false, err
	}
	for _, l := range locks {
		if l.Token != token {
			return false, nil
		}
	}
	return true, nil
}

func (s *BoltLockStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return s.db.Close()
}
