// This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.
// Copyright 2024 WJQSERVER. All rights reserved.
// All rights reserved by WJQSERVER, related rights can be exercised by the infinite-iroha organization.
package webdav

import "time"

// MetricsSink receives one event per completed request (spec.md §4.9's
// dispatch pipeline final step). Implementations must not block; the
// dispatcher calls Record synchronously on the request goroutine.
type MetricsSink interface {
	Record(method, path string, status int, elapsed time.Duration, err error)
}

// NoopMetrics discards every event. It is the default when Config.Metrics
// is nil.
type NoopMetrics struct{}

func (NoopMetrics) Record(string, string, int, time.Duration, error) {}
