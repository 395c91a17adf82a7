// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import "testing"

func TestParseByteRange(t *testing.T) {
	if r, err := parseByteRange(""); err != nil || r != nil {
		t.Errorf("empty header should yield (nil, nil), got (%v, %v)", r, err)
	}
	if r, err := parseByteRange("bytes=0-10,20-30"); err != nil || r != nil {
		t.Errorf("multi-range should yield (nil, nil), got (%v, %v)", r, err)
	}
	if r, err := parseByteRange("items=0-10"); err != nil || r != nil {
		t.Errorf("non-bytes unit should yield (nil, nil), got (%v, %v)", r, err)
	}
	if r, err := parseByteRange("bytes=-10"); err != nil || r != nil {
		t.Errorf("suffix range should yield (nil, nil), got (%v, %v)", r, err)
	}

	r, err := parseByteRange("bytes=5-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil || r.Start != 5 || r.End != 10 {
		t.Errorf("got %+v", r)
	}

	r, err = parseByteRange("bytes=5-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r == nil || r.Start != 5 || r.End != -1 {
		t.Errorf("got %+v", r)
	}
}

func TestByteRangeResolve(t *testing.T) {
	r := &byteRange{Start: 2, End: 4}
	start, end, ok := r.resolve(10)
	if !ok || start != 2 || end != 4 {
		t.Errorf("got start=%d end=%d ok=%v", start, end, ok)
	}

	r = &byteRange{Start: 5, End: -1}
	start, end, ok = r.resolve(10)
	if !ok || start != 5 || end != 9 {
		t.Errorf("got start=%d end=%d ok=%v", start, end, ok)
	}

	r = &byteRange{Start: 20, End: -1}
	if _, _, ok = r.resolve(10); ok {
		t.Error("start beyond size should be invalid")
	}

	r = &byteRange{Start: 0, End: 20}
	if _, _, ok = r.resolve(10); ok {
		t.Error("end beyond size should be invalid")
	}

	r = &byteRange{Start: 5, End: 2}
	if _, _, ok = r.resolve(10); ok {
		t.Error("end before start should be invalid")
	}
}
