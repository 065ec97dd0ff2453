package dedupe

import (
    "context"
    "fmt"

    "github.com/go-redis/redis/v8"
)

const donePrefix = "tbd:done:"

// RedisGuard records completed task ids in Redis with SETNX semantics, so
// dedupe holds across process restarts and horizontally scaled workers.
type RedisGuard struct {
    rdb  *redis.Client
    opts options
}

// NewRedisGuard wraps an existing client; the connection is shared with the
// broker, not owned by the guard.
func NewRedisGuard(rdb *redis.Client, opt ...Option) *RedisGuard {
    g := &RedisGuard{rdb: rdb}
    for _, o := range opt {
        o(&g.opts)
    }
    return g
}

func (g *RedisGuard) Seen(ctx context.Context, taskID string) (bool, error) {
    n, err := g.rdb.Exists(ctx, donePrefix+taskID).Result()
    if err != nil {
        return false, fmt.Errorf("dedupe lookup: %w", err)
    }
    return n > 0, nil
}

func (g *RedisGuard) MarkDone(ctx context.Context, taskID string) (bool, error) {
    created, err := g.rdb.SetNX(ctx, donePrefix+taskID, 1, g.opts.ttl).Result()
    if err != nil {
        return false, fmt.Errorf("dedupe mark: %w", err)
    }
    return created, nil
}
