// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMethodAction(t *testing.T) {
	cases := map[string]string{
		http.MethodGet:     "read",
		http.MethodHead:    "read",
		"PROPFIND":         "read",
		http.MethodOptions: "read",
		"LOCK":             "lock",
		"UNLOCK":           "lock",
		http.MethodPut:     "write",
		http.MethodDelete:  "write",
		"MKCOL":            "write",
		"COPY":             "write",
		"MOVE":             "write",
		"PROPPATCH":        "write",
	}
	for method, want := range cases {
		if got := methodAction(method); got != want {
			t.Errorf("methodAction(%q) = %q, want %q", method, got, want)
		}
	}
}

func TestNoAuth(t *testing.T) {
	var a NoAuth
	req := httptest.NewRequest("GET", "/", nil)
	principal, ok := a.Authenticate(req)
	if !ok || principal != "" {
		t.Errorf("NoAuth should always authenticate, got principal=%q ok=%v", principal, ok)
	}
	if !a.Authorize("anyone", "write", "/x") {
		t.Error("NoAuth should authorize everything")
	}
}

func TestBasicAuth(t *testing.T) {
	a := &BasicAuth{
		Realm: "test realm",
		Credentials: []BasicCredential{
			{Username: "alice", PasswordHash: HashPassword("secret")},
		},
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("alice", "secret")
	principal, ok := a.Authenticate(req)
	if !ok || principal != "alice" {
		t.Errorf("expected successful auth for alice, got principal=%q ok=%v", principal, ok)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("alice", "wrong")
	if _, ok := a.Authenticate(req); ok {
		t.Error("wrong password should fail authentication")
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.SetBasicAuth("bob", "secret")
	if _, ok := a.Authenticate(req); ok {
		t.Error("unknown user should fail authentication")
	}

	req = httptest.NewRequest("GET", "/", nil)
	if _, ok := a.Authenticate(req); ok {
		t.Error("missing credentials should fail authentication")
	}

	w := httptest.NewRecorder()
	a.Challenge(w)
	if got := w.Header().Get("WWW-Authenticate"); got != `Basic realm="test realm"` {
		t.Errorf("unexpected WWW-Authenticate header: %q", got)
	}
}

func TestAuthenticateHelper(t *testing.T) {
	a := &BasicAuth{Credentials: []BasicCredential{
		{Username: "alice", PasswordHash: HashPassword("secret")},
	}}

	req := httptest.NewRequest("PUT", "/x", nil)
	if _, err := authenticate(a, AllowAllAuthorizer{}, req, "PUT", "/x"); err == nil {
		t.Fatal("expected an error for an unauthenticated request")
	} else if err.Kind != KindUnauthorized {
		t.Errorf("expected KindUnauthorized, got %v", err.Kind)
	}

	req.SetBasicAuth("alice", "secret")
	principal, err := authenticate(a, AllowAllAuthorizer{}, req, "PUT", "/x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if principal != "alice" {
		t.Errorf("got principal %q, want alice", principal)
	}
}
