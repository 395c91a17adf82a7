// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"strconv"
	"strings"
)

// byteRange is a parsed single-range byte request (spec.md §4.3).
type byteRange struct {
	Start int64
	// End is -1 when the client omitted the end offset ("bytes=N-").
	End int64
}

// parseByteRange accepts only "bytes=start-end?" single ranges. It returns
// (nil, nil) when the header is absent or describes something this engine
// intentionally doesn't support (multi-range, suffix-range, non-bytes
// units, malformed integers) -- those are "no range", not errors.
func parseByteRange(header string) (*byteRange, error) {
	if header == "" {
		return nil, nil
	}
	if strings.Contains(header, ",") {
		return nil, nil
	}
	const unitPrefix = "bytes="
	if !strings.HasPrefix(header, unitPrefix) {
		return nil, nil
	}
	spec := strings.TrimPrefix(header, unitPrefix)
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return nil, nil
	}
	startStr, endStr := spec[:dash], spec[dash+1:]
	if startStr == "" {
		// Suffix range "bytes=-N" is out of scope.
		return nil, nil
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, nil
	}
	if endStr == "" {
		return &byteRange{Start: start, End: -1}, nil
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil || end < 0 {
		return nil, nil
	}
	return &byteRange{Start: start, End: end}, nil
}

// resolve validates the range against the resource size per spec.md §4.3:
// 0 <= start < size and (end absent or start <= end < size). It returns the
// concrete, inclusive [start, end] pair and whether the range is valid.
func (r *byteRange) resolve(size int64) (start, end int64, ok bool) {
	if r.Start < 0 || r.Start >= size {
		return 0, 0, false
	}
	if r.End < 0 {
		return r.Start, size - 1, true
	}
	if r.End < r.Start || r.End >= size {
		return 0, 0, false
	}
	return r.Start, r.End, true
}
