// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/go-json-experiment/json"
)

// FilePropertyStore persists dead properties as one hidden JSON sibling
// file per resource, per spec.md §6: ".<basename>.properties" next to the
// file itself, or inside the directory itself for collections.
//
// A single mutex serializes all store mutations; this is coarser than the
// per-path locking spec.md §5 allows but keeps Move/Copy trivially atomic
// with respect to other store operations, which is the invariant that
// matters for a file-backed implementation with no transaction support.
type FilePropertyStore struct {
	mu   sync.Mutex
	root string
}

// NewFilePropertyStore creates a file-backed property store rooted at the
// same directory the served FileSystem uses.
func NewFilePropertyStore(root string) *FilePropertyStore {
	return &FilePropertyStore{root: root}
}

func (s *FilePropertyStore) sidecarPath(internalPath string, isDir bool) string {
	if isDir {
		return filepath.Join(s.root, filepath.FromSlash(internalPath), ".properties")
	}
	dir, base := path.Split(internalPath)
	return filepath.Join(s.root, filepath.FromSlash(dir), "."+base+".properties")
}

// candidatePaths returns both the file-sidecar and directory-sidecar
// locations, since the store does not know a priori whether internalPath
// names a file or a collection; it tries the file form first.
func (s *FilePropertyStore) candidatePaths(internalPath string) []string {
	return []string{
		s.sidecarPath(internalPath, false),
		s.sidecarPath(internalPath, true),
	}
}

func (s *FilePropertyStore) readRaw(internalPath string) (map[string]Property, string) {
	for _, p := range s.candidatePaths(internalPath) {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var m map[string]Property
		if err := json.Unmarshal(data, &m); err != nil {
			// Corrupt stored data is treated as empty, never surfaced.
			return map[string]Property{}, p
		}
		if m == nil {
			m = map[string]Property{}
		}
		return m, p
	}
	return map[string]Property{}, ""
}

func (s *FilePropertyStore) writeRaw(internalPath string, m map[string]Property) error {
	if len(m) == 0 {
		for _, p := range s.candidatePaths(internalPath) {
			os.Remove(p)
		}
		return nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, existing := s.readRaw(internalPath)
	target := existing
	if target == "" {
		target = s.sidecarPath(internalPath, false)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0644)
}

func (s *FilePropertyStore) GetAll(internalPath string) (map[QName]Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := s.readRaw(internalPath)
	out := make(map[QName]Property, len(raw))
	for k, v := range raw {
		out[QName{Namespace: v.Namespace, Name: v.Name}] = v
		_ = k
	}
	return out, nil
}

func (s *FilePropertyStore) Get(internalPath, ns, name string) (Property, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := s.readRaw(internalPath)
	key := QName{Namespace: ns, Name: name}.String()
	p, ok := raw[key]
	return p, ok, nil
}

func (s *FilePropertyStore) Set(internalPath string, prop Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := s.readRaw(internalPath)
	raw[QName{Namespace: prop.Namespace, Name: prop.Name}.String()] = prop
	return s.writeRaw(internalPath, raw)
}

func (s *FilePropertyStore) Remove(internalPath, ns, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := s.readRaw(internalPath)
	key := QName{Namespace: ns, Name: name}.String()
	if _, ok := raw[key]; !ok {
		return false, nil
	}
	delete(raw, key)
	return true, s.writeRaw(internalPath, raw)
}

func (s *FilePropertyStore) RemoveAll(internalPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.candidatePaths(internalPath) {
		os.Remove(p)
	}
	return nil
}

func (s *FilePropertyStore) Move(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := s.readRaw(from)
	for _, p := range s.candidatePaths(from) {
		os.Remove(p)
	}
	if len(raw) == 0 {
		return nil
	}
	return s.writeRaw(to, raw)
}

func (s *FilePropertyStore) Copy(from, to string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := s.readRaw(from)
	if len(raw) == 0 {
		return nil
	}
	dst := make(map[string]Property, len(raw))
	for k, v := range raw {
		dst[k] = v
	}
	return s.writeRaw(to, dst)
}

func (s *FilePropertyStore) Has(internalPath string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := s.readRaw(internalPath)
	return len(raw) > 0, nil
}

func (s *FilePropertyStore) Count(internalPath string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, _ := s.readRaw(internalPath)
	return len(raw), nil
}

func (s *FilePropertyStore) Close() error { return nil }
