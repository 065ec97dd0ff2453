package redisq

import (
    "testing"
    "time"

    "github.com/burnsgregm/TbD-V6/pkg/config"
)

func TestBackoffGrowsAndCaps(t *testing.T) {
    q := &Queue{cfg: config.BrokerConfig{
        RetryBaseBackoff: 200 * time.Millisecond,
        RetryMaxBackoff:  2 * time.Second,
    }}

    within := func(attempt int, lo, hi time.Duration) {
        t.Helper()
        got := q.backoffFor(attempt)
        if got < lo || got > hi {
            t.Fatalf("attempt %d: backoff %v outside [%v, %v]", attempt, got, lo, hi)
        }
    }

    // base<<(attempt-1), plus up to 50% jitter
    within(1, 200*time.Millisecond, 300*time.Millisecond)
    within(2, 400*time.Millisecond, 600*time.Millisecond)
    within(3, 800*time.Millisecond, 1200*time.Millisecond)
    // capped at the max before jitter
    within(5, 2*time.Second, 3*time.Second)
    within(10, 2*time.Second, 3*time.Second)
}
