// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"net/url"
	"path"
	"strings"
)

// traversalSignals are the case-insensitive substrings that mark a request
// path as a traversal attempt, beyond a literal ".." segment.
var traversalSignals = []string{
	"%2e%2e%2f",
	"%2e%2e/",
	"..%2f",
	"%2e%2e%5c",
	"%252e%252e%252f",
}

// hasTraversalSignal reports whether raw (either still percent-encoded or
// already decoded) contains any of the traversal markers from spec.md §4.1
// step 1. It is applied to both the raw request-URI path and its decoded
// form, so callers run it twice.
func hasTraversalSignal(raw string) bool {
	if strings.Contains(raw, "../") || strings.Contains(raw, "..\\") {
		return true
	}
	lower := strings.ToLower(raw)
	for _, sig := range traversalSignals {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	for _, seg := range strings.Split(raw, "/") {
		if decoded, err := url.PathUnescape(seg); err != nil {
			return true
		} else if decoded == ".." {
			return true
		}
	}
	return false
}

// checkPathSafety implements spec.md §4.1 steps 1-3: traversal rejection,
// prefix stripping and POSIX canonicalization. It returns the internal path
// (prefix stripped, cleaned, always rooted at "/") or a PathForbidden error.
func checkPathSafety(rawRequestPath, prefix string) (string, error) {
	if hasTraversalSignal(rawRequestPath) {
		return "", newDAVError(KindPathForbidden, "Access denied")
	}

	decoded, err := url.PathUnescape(rawRequestPath)
	if err != nil {
		return "", newDAVError(KindPathForbidden, "Access denied")
	}
	if hasTraversalSignal(decoded) {
		return "", newDAVError(KindPathForbidden, "Access denied")
	}

	if !strings.HasPrefix(decoded, prefix) {
		return "", newDAVError(KindPathForbidden, "Access denied")
	}

	internal := strings.TrimPrefix(decoded, prefix)
	if internal == "" {
		internal = "/"
	}
	if !strings.HasPrefix(internal, "/") {
		internal = "/" + internal
	}
	internal = path.Clean(internal)
	if internal == "." {
		internal = "/"
	}
	return internal, nil
}

// mapToFilesystem joins an internal path with root using the supplied
// nativeJoin and maps any join error to a KindPathForbidden DAVError; any
// containment check is left to nativeJoin. OSFS does its own mapping in
// resolve and does not call this helper.
func mapToFilesystem(nativeJoin func(root, rel string) (string, error), root, internal string) (string, error) {
	mapped, err := nativeJoin(root, internal)
	if err != nil {
		return "", newDAVError(KindPathForbidden, "Access denied")
	}
	return mapped, nil
}

// destinationTarget is the parsed, validated form of a Destination header.
type destinationTarget struct {
	// InternalPath is the mount-prefix-stripped, cleaned path the engine
	// should operate on.
	InternalPath string
}

// parseDestination validates the Destination header per spec.md §4.1: it
// must be an absolute URI or an absolute path, pass the same traversal checks as the request
// URI, and either carry no authority or one matching reqScheme/reqHost, and
// the decoded path must start with prefix.
func parseDestination(destHeader, reqScheme, reqHost, prefix string) (*destinationTarget, error) {
	if destHeader == "" {
		return nil, newDAVError(KindMissingDestination, "Destination header required")
	}

	u, err := url.Parse(destHeader)
	if err != nil {
		return nil, newDAVError(KindInvalidDestination, "Destination header is not a valid URI")
	}

	rawPath := u.EscapedPath()
	if rawPath == "" {
		return nil, newDAVError(KindInvalidDestination, "Destination header is not a valid URI")
	}

	if u.Host != "" {
		if !strings.EqualFold(u.Host, reqHost) {
			return nil, newDAVError(KindInvalidDestination, "Destination host does not match request")
		}
		if u.Scheme != "" && reqScheme != "" && !strings.EqualFold(u.Scheme, reqScheme) {
			return nil, newDAVError(KindInvalidDestination, "Destination scheme does not match request")
		}
	}

	internal, err := checkPathSafety(rawPath, prefix)
	if err != nil {
		return nil, newDAVError(KindInvalidDestination, "Destination path is unsafe")
	}

	return &destinationTarget{InternalPath: internal}, nil
}

// hrefForPath builds the externally-visible href for an internal path:
// prefix + path, URL-encoded segment by segment, with a trailing slash for
// collections.
func hrefForPath(prefix, internalPath string, isCollection bool) string {
	full := internalPath
	if prefix != "" && prefix != "/" {
		full = prefix + internalPath
	}
	encoded := encodePathSegments(full)
	if isCollection && !strings.HasSuffix(encoded, "/") {
		encoded += "/"
	}
	return encoded
}

func encodePathSegments(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// joinInternal joins an internal (slash-separated, root "/") path with a
// child name, producing a cleaned internal path.
func joinInternal(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
