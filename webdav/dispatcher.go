// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"net/http"
	"time"

	"github.com/kurenai-dav/touka"
)

// Handler serves the WebDAV methods from spec.md §4 against one FileSystem,
// one PropertyStore and one LockStore. Construct it with NewHandler or
// Register/Serve rather than directly, so defaults are filled in.
type Handler struct {
	Prefix     string
	FileSystem FileSystem
	Properties PropertyStore
	Locks      LockStore

	ReadOnly       bool
	MaxUploadBytes int64

	Auth       Authenticator
	Authorizer Authorizer
	Throttle   *Throttle
	Metrics    MetricsSink

	LockTimeoutDefault time.Duration
}

// NewHandler builds a Handler from a fully-defaulted Config.
func NewHandler(cfg *Config) (*Handler, error) {
	cfg.fillDefaults()
	props, err := cfg.buildProperties()
	if err != nil {
		return nil, err
	}
	locks, err := cfg.buildLocks()
	if err != nil {
		return nil, err
	}
	var throttle *Throttle
	if cfg.MaxConcurrent > 0 || cfg.RequestsPerSec > 0 {
		throttle = NewThrottle(cfg.MaxConcurrent, cfg.RequestsPerSec, cfg.RateLimitBurst)
	}
	return &Handler{
		Prefix:             cfg.Prefix,
		FileSystem:         cfg.FileSystem,
		Properties:         props,
		Locks:              locks,
		ReadOnly:           cfg.ReadOnly,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		Auth:               cfg.Auth,
		Authorizer:         cfg.Authorizer,
		Throttle:           throttle,
		Metrics:            cfg.Metrics,
		LockTimeoutDefault: cfg.LockTimeoutDefault,
	}, nil
}

// ServeTouka is the single entry point registered on the touka engine. It
// implements spec.md §4.9's ordered pipeline: throttle, path safety, auth,
// classification, precondition checks, method dispatch, metrics.
func (h *Handler) ServeTouka(c *touka.Context) {
	start := time.Now()
	method := c.Request.Method
	var release func()

	if h.Throttle != nil {
		var limited bool
		var remaining int
		var resetAfter time.Duration
		release, limited, remaining, resetAfter = h.Throttle.allow(c.Request)
		stampHeaders(c.Writer, remaining, resetAfter)
		if limited {
			c.SetHeader("Retry-After", "1")
			c.Status(http.StatusTooManyRequests)
			h.record(method, c.Request.URL.Path, http.StatusTooManyRequests, start, nil)
			return
		}
		defer release()
	}

	internalPath, err := checkPathSafety(c.Request.URL.Path, h.Prefix)
	if err != nil {
		h.fail(c, method, err, start)
		return
	}

	if h.Auth != nil {
		principal, aerr := authenticate(h.Auth, h.Authorizer, c.Request, method, internalPath)
		if aerr != nil {
			if aerr.Kind == KindUnauthorized {
				h.Auth.Challenge(c.Writer)
			}
			h.fail(c, method, aerr, start)
			return
		}
		c.Set("webdav_principal", principal)
	}

	cache := newStatCache(h.FileSystem, c.Context())
	res, err := cache.classify(internalPath)
	if err != nil {
		h.fail(c, method, err, start)
		return
	}

	etag := ""
	if res.Kind == kindFile {
		etag = computeETag(res.Info.Size(), mtimeMillis(res.Info), internalPath)
	}

	precheck := preconditionInput{
		ReadOnly:       h.ReadOnly,
		Method:         method,
		ContentLength:  c.Request.ContentLength,
		MaxUploadBytes: h.MaxUploadBytes,
		Res:            res,
		Locks:          h.Locks,
		IfHeader:       c.GetReqHeader("If"),
		LockTokenHdr:   c.GetReqHeader("Lock-Token"),
		IfMatch:        c.GetReqHeader("If-Match"),
		IfNoneMatch:    c.GetReqHeader("If-None-Match"),
		CurrentETag:    etag,
	}
	if method != http.MethodOptions {
		if err := evaluatePreconditions(precheck); err != nil {
			h.fail(c, method, err, start)
			return
		}
	}

	switch method {
	case http.MethodOptions:
		h.handleOptions(c)
	case http.MethodGet, http.MethodHead:
		h.handleGetHead(c, cache, res, etag)
	case http.MethodPut:
		h.handlePut(c, cache, res)
	case http.MethodDelete:
		h.handleDelete(c, cache, res)
	case "MKCOL":
		h.handleMkcol(c, cache, res)
	case "COPY":
		h.handleCopy(c, cache, res)
	case "MOVE":
		h.handleMove(c, cache, res)
	case "PROPFIND":
		h.handlePropfind(c, cache, res)
	case "PROPPATCH":
		h.handleProppatch(c, res)
	case "LOCK":
		h.handleLock(c, cache, res)
	case "UNLOCK":
		h.handleUnlock(c, res)
	default:
		h.fail(c, method, newDAVError(KindMethodNotAllowed, "Method not supported"), start)
		return
	}

	h.record(method, internalPath, c.Writer.Status(), start, nil)
}

func (h *Handler) fail(c *touka.Context, method string, err error, start time.Time) {
	de := asDAVError(err)
	for k, v := range de.Headers {
		c.SetHeader(k, v)
	}
	c.Errorf("webdav %s %s: %v", method, c.Request.URL.Path, de)
	c.Status(de.Status())
	h.record(method, c.Request.URL.Path, de.Status(), start, de)
}

// writeErr is used from within a method handler, after dispatch has already
// started: it only writes the response, since ServeTouka records metrics
// once after the handler returns.
func (h *Handler) writeErr(c *touka.Context, err error) {
	de := asDAVError(err)
	for k, v := range de.Headers {
		c.SetHeader(k, v)
	}
	c.Errorf("webdav %s %s: %v", c.Request.Method, c.Request.URL.Path, de)
	c.Status(de.Status())
}

func (h *Handler) record(method, path string, status int, start time.Time, err error) {
	if h.Metrics == nil {
		return
	}
	h.Metrics.Record(method, path, status, time.Since(start), err)
}

func (h *Handler) handleOptions(c *touka.Context) {
	allow := "OPTIONS, GET, HEAD, PUT, DELETE, MKCOL, COPY, MOVE, PROPFIND, PROPPATCH, LOCK, UNLOCK"
	c.SetHeader("Allow", allow)
	c.SetHeader("DAV", "1, 2")
	c.SetHeader("MS-Author-Via", "DAV")
	c.SetHeader("Content-Length", "0")
	c.Status(http.StatusOK)
}
