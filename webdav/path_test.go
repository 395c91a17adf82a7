// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import "testing"

func TestHasTraversalSignal(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"/a/b/c", false},
		{"/a/../b", true},
		{"/a/..%2fb", true},
		{"/a/%2e%2e%2fb", true},
		{"/a/%2e%2e%5cb", true},
		{"/a/%252e%252e%252fb", true},
		{`/a\..\b`, true},
		{"/a/b%2e%2ec", false},
	}
	for _, c := range cases {
		if got := hasTraversalSignal(c.in); got != c.want {
			t.Errorf("hasTraversalSignal(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestCheckPathSafety(t *testing.T) {
	internal, err := checkPathSafety("/dav/foo/bar", "/dav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if internal != "/foo/bar" {
		t.Errorf("got %q, want /foo/bar", internal)
	}

	if _, err := checkPathSafety("/dav/../etc/passwd", "/dav"); err == nil {
		t.Error("expected traversal to be rejected")
	}

	if _, err := checkPathSafety("/other/foo", "/dav"); err == nil {
		t.Error("expected path outside prefix to be rejected")
	}

	root, err := checkPathSafety("/dav", "/dav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root != "/" {
		t.Errorf("got %q, want /", root)
	}

	internal, err = checkPathSafety("/dav/", "/dav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if internal != "/" {
		t.Errorf("got %q, want /", internal)
	}
}

func TestParseDestination(t *testing.T) {
	dest, err := parseDestination("http://example.com/dav/target.txt", "http", "example.com", "/dav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dest.InternalPath != "/target.txt" {
		t.Errorf("got %q, want /target.txt", dest.InternalPath)
	}

	if _, err := parseDestination("", "http", "example.com", "/dav"); err == nil {
		t.Error("expected error for missing Destination header")
	}

	if _, err := parseDestination("http://evil.com/dav/target.txt", "http", "example.com", "/dav"); err == nil {
		t.Error("expected error for mismatched host")
	}

	if _, err := parseDestination("http://example.com/dav/../etc/passwd", "http", "example.com", "/dav"); err == nil {
		t.Error("expected error for traversal in Destination")
	}

	dest, err = parseDestination("/dav/relative.txt", "http", "example.com", "/dav")
	if err != nil {
		t.Fatalf("unexpected error for host-less destination: %v", err)
	}
	if dest.InternalPath != "/relative.txt" {
		t.Errorf("got %q, want /relative.txt", dest.InternalPath)
	}
}

func TestHrefForPath(t *testing.T) {
	if got := hrefForPath("/dav", "/a b/c", false); got != "/dav/a%20b/c" {
		t.Errorf("got %q", got)
	}
	if got := hrefForPath("/dav", "/folder", true); got != "/dav/folder/" {
		t.Errorf("got %q, want trailing slash for collection", got)
	}
	if got := hrefForPath("/", "/folder", false); got != "/folder" {
		t.Errorf("got %q", got)
	}
}

func TestJoinInternal(t *testing.T) {
	if got := joinInternal("/", "foo"); got != "/foo" {
		t.Errorf("got %q, want /foo", got)
	}
	if got := joinInternal("/foo", "bar"); got != "/foo/bar" {
		t.Errorf("got %q, want /foo/bar", got)
	}
}
