// Package ratelimit implements per-caller fixed-quota request limiting with
// a window that starts at the caller's first request.
package ratelimit

import (
	"context"
	"time"
)

// QuotaStore counts hits per key within a window.
type QuotaStore interface {
	// Hit records one request for key and returns the count so far in the
	// current window and the time until the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (count int64, resetIn time.Duration, err error)
}
