// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import "net/http"

// ErrorKind is the taxonomy of precondition/dispatch failures defined in
// spec.md §7. Each kind maps to exactly one HTTP status.
type ErrorKind int

const (
	KindReadOnly ErrorKind = iota
	KindLocked
	KindUploadTooLarge
	KindETagNotModified
	KindETagMismatch
	KindMissingDestination
	KindInvalidDestination
	KindSameSourceDestination
	KindDestinationExists
	KindMissingParent
	KindPathForbidden
	KindNotFound
	KindMethodNotAllowed
	KindConflict
	KindInternal
	KindNotImplemented
	KindUnauthorized
	KindBadRequest
)

var kindStatus = map[ErrorKind]int{
	KindReadOnly:              http.StatusForbidden,
	KindLocked:                http.StatusLocked,
	KindUploadTooLarge:        http.StatusRequestEntityTooLarge,
	KindETagNotModified:       http.StatusNotModified,
	KindETagMismatch:          http.StatusPreconditionFailed,
	KindMissingDestination:    http.StatusForbidden,
	KindInvalidDestination:    http.StatusForbidden,
	KindSameSourceDestination: http.StatusForbidden,
	KindDestinationExists:     http.StatusPreconditionFailed,
	KindMissingParent:         http.StatusConflict,
	KindPathForbidden:         http.StatusForbidden,
	KindNotFound:              http.StatusNotFound,
	KindMethodNotAllowed:      http.StatusMethodNotAllowed,
	KindConflict:              http.StatusConflict,
	KindInternal:              http.StatusInternalServerError,
	KindNotImplemented:        http.StatusNotImplemented,
	KindUnauthorized:          http.StatusUnauthorized,
	KindBadRequest:            http.StatusBadRequest,
}

// DAVError is a typed precondition/dispatch error. It carries its own
// canonical HTTP response shape so the dispatcher can convert it exactly
// once, per spec.md §7's propagation policy.
type DAVError struct {
	Kind    ErrorKind
	Message string
	Headers map[string]string
}

func (e *DAVError) Error() string { return e.Message }

// Status returns the single HTTP status this error's kind maps to.
func (e *DAVError) Status() int {
	if s, ok := kindStatus[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

func newDAVError(kind ErrorKind, message string) *DAVError {
	return &DAVError{Kind: kind, Message: message}
}

func newDAVErrorWithHeaders(kind ErrorKind, message string, headers map[string]string) *DAVError {
	return &DAVError{Kind: kind, Message: message, Headers: headers}
}

// asDAVError unwraps err into a *DAVError, or wraps it as KindInternal when
// it originates from a filesystem/store failure that carries no more
// specific precondition identity (spec.md §7 propagation policy).
func asDAVError(err error) *DAVError {
	if err == nil {
		return nil
	}
	if de, ok := err.(*DAVError); ok {
		return de
	}
	return newDAVError(KindInternal, err.Error())
}
