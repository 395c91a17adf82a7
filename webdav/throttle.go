// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle bounds concurrent requests globally and request rate per client
// (spec.md §4.8's abuse-control gate), keyed by clientKey.
type Throttle struct {
	sem chan struct{}

	mu       sync.Mutex
	limiters map[string]*clientLimiter
	rps      float64
	burst    int

	stop     chan struct{}
	stopOnce sync.Once
}

type clientLimiter struct {
	limiter *rate.Limiter
	lastUse time.Time
}

// NewThrottle creates a throttle gate. maxConcurrent <= 0 disables the
// concurrency cap; rps <= 0 disables the per-client rate limit.
func NewThrottle(maxConcurrent int, rps float64, burst int) *Throttle {
	t := &Throttle{
		limiters: make(map[string]*clientLimiter),
		rps:      rps,
		burst:    burst,
		stop:     make(chan struct{}),
	}
	if maxConcurrent > 0 {
		t.sem = make(chan struct{}, maxConcurrent)
	}
	go t.sweep()
	return t
}

func (t *Throttle) sweep() {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			cutoff := time.Now().Add(-5 * time.Minute)
			for key, l := range t.limiters {
				if l.lastUse.Before(cutoff) {
					delete(t.limiters, key)
				}
			}
			t.mu.Unlock()
		case <-t.stop:
			return
		}
	}
}

// clientKey derives a per-client identity from X-Forwarded-For, X-Real-IP
// or RemoteAddr, in that preference order. The headers are trusted as sent
// and not validated as IP addresses, and RemoteAddr keeps its port; this
// differs from touka's Context.RequestIP, which consults headers only when
// the engine's ForwardByClientIP is set.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			fwd = fwd[:idx]
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return strings.TrimSpace(real)
	}
	return r.RemoteAddr
}

// allow reserves a concurrency slot and checks the per-client rate limit.
// The returned release func must be called exactly once, regardless of
// outcome, to free the concurrency slot that was acquired (if any).
func (t *Throttle) allow(r *http.Request) (release func(), limited bool, remaining int, resetAfter time.Duration) {
	release = func() {}
	if t.sem != nil {
		select {
		case t.sem <- struct{}{}:
			release = func() { <-t.sem }
		default:
			return release, true, 0, time.Second
		}
	}

	if t.rps <= 0 {
		return release, false, -1, 0
	}

	key := clientKey(r)
	t.mu.Lock()
	cl, ok := t.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(t.rps), t.burst)}
		t.limiters[key] = cl
	}
	cl.lastUse = time.Now()
	t.mu.Unlock()

	if !cl.limiter.Allow() {
		release()
		return func() {}, true, 0, time.Second
	}

	tokens := int(cl.limiter.Tokens())
	if tokens < 0 {
		tokens = 0
	}
	return release, false, tokens, 0
}

// stampHeaders writes X-RateLimit-* response headers per spec.md §4.8.
func stampHeaders(w http.ResponseWriter, remaining int, resetAfter time.Duration) {
	if remaining >= 0 {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	}
	if resetAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(resetAfter.Seconds())))
	}
}

func (t *Throttle) Close() error {
	t.stopOnce.Do(func() { close(t.stop) })
	return nil
}
