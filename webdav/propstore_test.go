// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"os"
	"path/filepath"
	"testing"
)

func propertyStores(t *testing.T) map[string]PropertyStore {
	t.Helper()
	dir := t.TempDir()

	boltStore, err := OpenBoltPropertyStore(filepath.Join(dir, "props.db"))
	if err != nil {
		t.Fatalf("OpenBoltPropertyStore: %v", err)
	}
	t.Cleanup(func() { boltStore.Close() })

	fileRoot := filepath.Join(dir, "file-root")
	if err := os.MkdirAll(fileRoot, 0755); err != nil {
		t.Fatalf("mkdir file root: %v", err)
	}

	return map[string]PropertyStore{
		"memory": NewMemoryPropertyStore(),
		"file":   NewFilePropertyStore(fileRoot),
		"bbolt":  boltStore,
	}
}

func TestPropertyStoreSetGetRemove(t *testing.T) {
	for name, store := range propertyStores(t) {
		t.Run(name, func(t *testing.T) {
			prop := Property{Namespace: "http://example.com/", Name: "color", Value: "blue"}
			if err := store.Set("/a/b.txt", prop); err != nil {
				t.Fatalf("Set: %v", err)
			}

			got, ok, err := store.Get("/a/b.txt", prop.Namespace, prop.Name)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !ok || got.Value != "blue" {
				t.Fatalf("Get returned %+v, ok=%v", got, ok)
			}

			has, err := store.Has("/a/b.txt")
			if err != nil || !has {
				t.Fatalf("Has = %v, %v", has, err)
			}
			count, err := store.Count("/a/b.txt")
			if err != nil || count != 1 {
				t.Fatalf("Count = %d, %v", count, err)
			}

			removed, err := store.Remove("/a/b.txt", prop.Namespace, prop.Name)
			if err != nil || !removed {
				t.Fatalf("Remove = %v, %v", removed, err)
			}
			if _, ok, _ := store.Get("/a/b.txt", prop.Namespace, prop.Name); ok {
				t.Error("property should be gone after Remove")
			}

			removedAgain, err := store.Remove("/a/b.txt", prop.Namespace, prop.Name)
			if err != nil || removedAgain {
				t.Errorf("removing a missing property should be a no-op false, got %v, %v", removedAgain, err)
			}
		})
	}
}

func TestPropertyStoreGetAllAndRemoveAll(t *testing.T) {
	for name, store := range propertyStores(t) {
		t.Run(name, func(t *testing.T) {
			store.Set("/col/", Property{Namespace: "DAV:", Name: "displayname", Value: "col"})
			store.Set("/col/", Property{Namespace: "urn:x", Name: "author", Value: "me"})

			all, err := store.GetAll("/col/")
			if err != nil {
				t.Fatalf("GetAll: %v", err)
			}
			if len(all) != 2 {
				t.Fatalf("expected 2 properties, got %d", len(all))
			}

			if err := store.RemoveAll("/col/"); err != nil {
				t.Fatalf("RemoveAll: %v", err)
			}
			all, _ = store.GetAll("/col/")
			if len(all) != 0 {
				t.Errorf("expected 0 properties after RemoveAll, got %d", len(all))
			}
		})
	}
}

func TestPropertyStoreMoveAndCopy(t *testing.T) {
	for name, store := range propertyStores(t) {
		t.Run(name, func(t *testing.T) {
			store.Set("/src.txt", Property{Namespace: "urn:x", Name: "tag", Value: "v1"})

			if err := store.Copy("/src.txt", "/dup.txt"); err != nil {
				t.Fatalf("Copy: %v", err)
			}
			if _, ok, _ := store.Get("/src.txt", "urn:x", "tag"); !ok {
				t.Error("source should still have its property after Copy")
			}
			if _, ok, _ := store.Get("/dup.txt", "urn:x", "tag"); !ok {
				t.Error("destination should have the copied property")
			}

			if err := store.Move("/src.txt", "/renamed.txt"); err != nil {
				t.Fatalf("Move: %v", err)
			}
			if has, _ := store.Has("/src.txt"); has {
				t.Error("source should have no properties after Move")
			}
			if _, ok, _ := store.Get("/renamed.txt", "urn:x", "tag"); !ok {
				t.Error("destination should have the moved property")
			}
		})
	}
}
