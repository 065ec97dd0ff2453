// Package dedupe implements the idempotency guard that suppresses duplicate
// side effects under the broker's at-least-once redelivery. Only completed
// work is recorded; in-progress tasks are never marked, so a slow task that
// gets redelivered is retried rather than silently dropped.
package dedupe

import (
    "context"
    "time"
)

// Guard tracks which task identities have fully completed.
type Guard interface {
    // Seen reports whether taskID already completed.
    Seen(ctx context.Context, taskID string) (bool, error)
    // MarkDone records taskID as completed. Returns true when this call
    // created the record, false when it already existed.
    MarkDone(ctx context.Context, taskID string) (bool, error)
}

// TTL-capped records bound memory growth; a zero ttl keeps records forever.
type options struct{ ttl time.Duration }

// Option configures a guard.
type Option func(*options)

// WithTTL caps how long a completed task id is remembered.
func WithTTL(ttl time.Duration) Option { return func(o *options) { o.ttl = ttl } }
