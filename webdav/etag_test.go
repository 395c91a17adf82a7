// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import "testing"

func TestComputeETagIsStableAndQuoted(t *testing.T) {
	a := computeETag(100, 123456789, "/foo/bar")
	b := computeETag(100, 123456789, "/foo/bar")
	if a != b {
		t.Errorf("computeETag should be deterministic: %q != %q", a, b)
	}
	if len(a) < 2 || a[0] != '"' || a[len(a)-1] != '"' {
		t.Errorf("expected a quoted etag, got %q", a)
	}

	c := computeETag(101, 123456789, "/foo/bar")
	if a == c {
		t.Error("different sizes should produce different etags")
	}
	d := computeETag(100, 123456789, "/foo/baz")
	if a == d {
		t.Error("different paths should produce different etags")
	}
}

func TestEtagMatches(t *testing.T) {
	etag := computeETag(10, 1, "/x")
	if !etagMatches(etag, "*") {
		t.Error("* should match any etag")
	}
	if !etagMatches(etag, etag) {
		t.Error("exact etag should match itself")
	}
	if !etagMatches(etag, `"bogus", `+etag) {
		t.Error("should match within a comma-separated list")
	}
	if etagMatches(etag, `"different"`) {
		t.Error("unrelated etag should not match")
	}
	if !etagMatches(etag, "W/"+etag) {
		t.Error("a weak-prefixed candidate should still match on quoted value")
	}
}

func TestCheckIfMatch(t *testing.T) {
	etag := computeETag(10, 1, "/x")
	if err := checkIfMatch(etag, ""); err != nil {
		t.Errorf("empty header should pass: %v", err)
	}
	if err := checkIfMatch(etag, etag); err != nil {
		t.Errorf("matching etag should pass: %v", err)
	}
	if err := checkIfMatch(etag, `"nope"`); err == nil {
		t.Error("mismatched etag should fail")
	}
}

func TestCheckIfNoneMatch(t *testing.T) {
	etag := computeETag(10, 1, "/x")

	if err := checkIfNoneMatch(etag, "", true); err != nil {
		t.Errorf("empty header should pass: %v", err)
	}

	err := checkIfNoneMatch(etag, etag, true)
	if err == nil {
		t.Fatal("expected an error for a matching etag on a safe method")
	}
	de := asDAVError(err)
	if de.Kind != KindETagNotModified {
		t.Errorf("safe method match should yield KindETagNotModified, got %v", de.Kind)
	}

	err = checkIfNoneMatch(etag, etag, false)
	if err == nil {
		t.Fatal("expected an error for a matching etag on an unsafe method")
	}
	de = asDAVError(err)
	if de.Kind != KindETagMismatch {
		t.Errorf("unsafe method match should yield KindETagMismatch, got %v", de.Kind)
	}

	if err := checkIfNoneMatch(etag, `"other"`, false); err != nil {
		t.Errorf("non-matching etag should pass: %v", err)
	}
}
