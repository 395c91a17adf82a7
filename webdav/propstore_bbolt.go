// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"github.com/go-json-experiment/json"
	bolt "go.etcd.io/bbolt"
)

var propertyBucket = []byte("properties")

// BoltPropertyStore is the persistent property_backend from spec.md §6,
// keyed "prop:<internal-path>" -> JSON `{"{ns}name": {...}}`, giving
// crash-consistent per-path writes via bbolt's single-writer transactions
// (spec.md §5's "serialize writes per path" requirement falls out of
// bbolt's own write-transaction serialization, at store granularity rather
// than per-path).
type BoltPropertyStore struct {
	db *bolt.DB
}

// OpenBoltPropertyStore opens (creating if absent) a bbolt-backed property
// store at dbPath.
func OpenBoltPropertyStore(dbPath string) (*BoltPropertyStore, error) {
	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(propertyBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltPropertyStore{db: db}, nil
}

func propKey(internalPath string) []byte {
	return []byte("prop:" + internalPath)
}

func (s *BoltPropertyStore) readRaw(internalPath string) map[string]Property {
	var out map[string]Property
	s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(propertyBucket).Get(propKey(internalPath))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &out); err != nil {
			// Corrupt stored data is treated as empty, never surfaced.
			out = nil
		}
		return nil
	})
	if out == nil {
		out = map[string]Property{}
	}
	return out
}

func (s *BoltPropertyStore) writeRaw(internalPath string, m map[string]Property) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(propertyBucket)
		if len(m) == 0 {
			return b.Delete(propKey(internalPath))
		}
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return b.Put(propKey(internalPath), data)
	})
}

func (s *BoltPropertyStore) GetAll(internalPath string) (map[QName]Property, error) {
	raw := s.readRaw(internalPath)
	out := make(map[QName]Property, len(raw))
	for _, v := range raw {
		out[QName{Namespace: v.Namespace, Name: v.Name}] = v
	}
	return out, nil
}

func (s *BoltPropertyStore) Get(internalPath, ns, name string) (Property, bool, error) {
	raw := s.readRaw(internalPath)
	p, ok := raw[QName{Namespace: ns, Name: name}.String()]
	return p, ok, nil
}

func (s *BoltPropertyStore) Set(internalPath string, prop Property) error {
	raw := s.readRaw(internalPath)
	raw[QName{Namespace: prop.Namespace, Name: prop.Name}.String()] = prop
	return s.writeRaw(internalPath, raw)
}

func (s *BoltPropertyStore) Remove(internalPath, ns, name string) (bool, error) {
	raw := s.readRaw(internalPath)
	key := QName{Namespace: ns, Name: name}.String()
	if _, ok := raw[key]; !ok {
		return false, nil
	}
	delete(raw, key)
	return true, s.writeRaw(internalPath, raw)
}

func (s *BoltPropertyStore) RemoveAll(internalPath string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(propertyBucket).Delete(propKey(internalPath))
	})
}

func (s *BoltPropertyStore) Move(from, to string) error {
	raw := s.readRaw(from)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(propertyBucket)
		if err := b.Delete(propKey(from)); err != nil {
			return err
		}
		if len(raw) == 0 {
			return b.Delete(propKey(to))
		}
		data, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		return b.Put(propKey(to), data)
	})
}

func (s *BoltPropertyStore) Copy(from, to string) error {
	raw := s.readRaw(from)
	if len(raw) == 0 {
		return nil
	}
	return s.writeRaw(to, raw)
}

func (s *BoltPropertyStore) Has(internalPath string) (bool, error) {
	return len(s.readRaw(internalPath)) > 0, nil
}

func (s *BoltPropertyStore) Count(internalPath string) (int, error) {
	return len(s.readRaw(internalPath)), nil
}

func (s *BoltPropertyStore) Close() error { return s.db.Close() }
