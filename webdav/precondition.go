// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"fmt"
	"net/http"
	"regexp"
)

// lockTokenPattern extracts an opaque lock token from an If or Lock-Token
// header value of the form "(<opaquelocktoken:...>)" or
// "<opaquelocktoken:...>".
var lockTokenPattern = regexp.MustCompile(`<([^>]+)>`)

// extractLockToken returns the first token found in header, or "" if none.
func extractLockToken(header string) string {
	m := lockTokenPattern.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}

// preconditionInput bundles everything the evaluator pipeline needs so the
// ordering in spec.md §4.7 can be expressed as one linear function instead
// of being re-derived per handler.
type preconditionInput struct {
	ReadOnly       bool
	Method         string
	ContentLength  int64
	MaxUploadBytes int64
	Res            *resource
	Locks          LockStore
	IfHeader       string
	LockTokenHdr   string
	IfMatch        string
	IfNoneMatch    string
	CurrentETag    string // "" if the resource doesn't exist yet
}

// mutatingMethods are the methods the read-only and lock gates apply to;
// GET/HEAD/OPTIONS/PROPFIND never mutate state.
var mutatingMethods = map[string]bool{
	http.MethodPut:    true,
	http.MethodDelete: true,
	"MKCOL":           true,
	"COPY":            true,
	"MOVE":            true,
	"PROPPATCH":       true,
	"LOCK":            true,
	"UNLOCK":          true,
}

var safeMethods = map[string]bool{
	http.MethodGet:  true,
	http.MethodHead: true,
}

// evaluatePreconditions runs the ordered pipeline from spec.md §4.7:
// read-only mode, upload size, lock gate, parent existence, then ETag
// checks. The first failing stage returns its typed error; stages after it
// never run.
func evaluatePreconditions(in preconditionInput) error {
	if in.ReadOnly && mutatingMethods[in.Method] {
		return newDAVError(KindReadOnly, "Server is running in read-only mode")
	}

	if in.MaxUploadBytes > 0 && in.ContentLength > in.MaxUploadBytes {
		return newDAVError(KindUploadTooLarge, fmt.Sprintf("Upload exceeds the %d byte limit", in.MaxUploadBytes))
	}

	if in.Locks != nil && mutatingMethods[in.Method] && in.Method != "LOCK" {
		token := extractLockToken(in.IfHeader)
		if token == "" {
			token = extractLockToken(in.LockTokenHdr)
		}
		ok, err := in.Locks.CanModify(in.Res.Path, token)
		if err != nil {
			return asDAVError(err)
		}
		if !ok {
			return newDAVError(KindLocked, "Resource is locked")
		}
	}

	if in.Res.Kind == kindNull && (in.Method == "MKCOL" || in.Method == http.MethodPut) && !in.Res.ParentExists {
		return newDAVError(KindMissingParent, "Parent collection does not exist")
	}

	if err := checkIfMatch(in.CurrentETag, in.IfMatch); err != nil {
		return err
	}
	if err := checkIfNoneMatch(in.CurrentETag, in.IfNoneMatch, safeMethods[in.Method]); err != nil {
		return err
	}

	return nil
}
