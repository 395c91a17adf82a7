// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// Authenticator resolves an incoming request to a principal name, or
// reports that the request carries no valid credentials (spec.md §4.8).
type Authenticator interface {
	Authenticate(r *http.Request) (principal string, ok bool)
	// Challenge writes any headers (e.g. WWW-Authenticate) a 401 response
	// needs, before the status line is written.
	Challenge(w http.ResponseWriter)
}

// Authorizer decides whether a principal may perform action on path.
type Authorizer interface {
	Authorize(principal, action, path string) bool
}

// methodAction maps an HTTP method to the coarse action Authorizer sees,
// per spec.md §4.8: reads vs. writes vs. lock management.
func methodAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, "PROPFIND", http.MethodOptions:
		return "read"
	case "LOCK", "UNLOCK":
		return "lock"
	default:
		return "write"
	}
}

// NoAuth performs no authentication and authorizes everything; it is the
// zero-config default (spec.md §6 auth.mode = "none").
type NoAuth struct{}

func (NoAuth) Authenticate(*http.Request) (string, bool) { return "", true }
func (NoAuth) Challenge(http.ResponseWriter)              {}
func (NoAuth) Authorize(string, string, string) bool      { return true }

// BasicCredential is one configured HTTP Basic account: the password is
// never stored, only its SHA-256 digest (spec.md §4.8).
type BasicCredential struct {
	Username     string
	PasswordHash [32]byte
}

// HashPassword computes the digest BasicCredential.PasswordHash expects.
func HashPassword(password string) [32]byte {
	return sha256.Sum256([]byte(password))
}

// BasicAuth implements HTTP Basic authentication against a fixed credential
// set, comparing password digests in constant time.
type BasicAuth struct {
	Realm       string
	Credentials []BasicCredential
}

func (a *BasicAuth) Authenticate(r *http.Request) (string, bool) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return "", false
	}
	digest := HashPassword(pass)
	for _, cred := range a.Credentials {
		if cred.Username != user {
			continue
		}
		if subtle.ConstantTimeCompare(digest[:], cred.PasswordHash[:]) == 1 {
			return user, true
		}
		return "", false
	}
	return "", false
}

func (a *BasicAuth) Challenge(w http.ResponseWriter) {
	realm := a.Realm
	if realm == "" {
		realm = "webdav"
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="`+strings.ReplaceAll(realm, `"`, "")+`"`)
}

// AllowAllAuthorizer grants every authenticated principal every action.
type AllowAllAuthorizer struct{}

func (AllowAllAuthorizer) Authorize(string, string, string) bool { return true }

// authenticate runs the authenticator and, on success, the authorizer, for
// one request; it returns a typed error when access must be denied.
func authenticate(authn Authenticator, authz Authorizer, r *http.Request, method, path string) (principal string, err *DAVError) {
	principal, ok := authn.Authenticate(r)
	if !ok {
		return "", newDAVError(KindUnauthorized, "Authentication required")
	}
	if authz != nil && !authz.Authorize(principal, methodAction(method), path) {
		return "", newDAVError(KindPathForbidden, "Not authorized")
	}
	return principal, nil
}
