// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/kurenai-dav/touka"
)

func TestRegister(t *testing.T) {
	r := touka.New()
	cfg := &Config{
		Prefix:     "/dav",
		FileSystem: NewMemFS(),
	}
	if _, err := Register(r, cfg); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	req, _ := http.NewRequest("PROPFIND", "/dav/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code == http.StatusNotFound {
		t.Errorf("Expected PROPFIND to be registered, but got 404")
	}
}

func TestServe(t *testing.T) {
	r := touka.New()
	dir, _ := os.MkdirTemp("", "webdav")
	defer os.RemoveAll(dir)

	handler, err := Serve(r, "/serve", dir)
	if err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	defer handler.Locks.Close()

	req, _ := http.NewRequest("OPTIONS", "/serve/", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected OPTIONS to return 200, but got %d", w.Code)
	}
}
