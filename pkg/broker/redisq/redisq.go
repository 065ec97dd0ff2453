// Package redisq implements the broker contracts over Redis lists: LPUSH to
// the topic list, BRPOPLPUSH into a per-consumer processing list, LREM on
// acknowledgement. Nacked messages go to a scheduled-retry ZSET with
// exponential backoff; messages stuck in a processing list past the
// visibility timeout are reclaimed for redelivery.
package redisq

import (
    "context"
    "fmt"
    "math/rand"
    "time"

    "github.com/go-redis/redis/v8"
    "go.uber.org/zap"

    "github.com/burnsgregm/TbD-V6/pkg/broker"
    "github.com/burnsgregm/TbD-V6/pkg/codec"
    "github.com/burnsgregm/TbD-V6/pkg/config"
)

const (
    processingSuffix = ":processing"
    retrySuffix      = ":retry"
    deadlineSuffix   = ":deadlines"
    deadSuffix       = ":dead"

    pollTimeout   = 2 * time.Second
    retryScanStep = 200 * time.Millisecond
    reclaimStep   = 5 * time.Second
    retryScanMax  = 128
)

// Queue is a Redis-backed publisher/consumer pair. One Queue may be shared
// across dispatches and completions; the client handle is reused.
type Queue struct {
    rdb  *redis.Client
    c    codec.Codec
    cfg  config.BrokerConfig
    name string // consumer name, scopes the processing list
}

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg config.BrokerConfig, consumerName string) (*Queue, error) {
    cd, err := codec.ForName(cfg.Codec)
    if err != nil {
        return nil, err
    }
    rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
    if err := rdb.Ping(ctx).Err(); err != nil {
        _ = rdb.Close()
        return nil, fmt.Errorf("%w: %v", broker.ErrUnavailable, err)
    }
    return &Queue{rdb: rdb, c: cd, cfg: cfg, name: consumerName}, nil
}

// Close releases the client connection.
func (q *Queue) Close() error { return q.rdb.Close() }

// Client exposes the shared Redis handle so collaborators (the idempotency
// guard) can reuse the connection.
func (q *Queue) Client() *redis.Client { return q.rdb }

// Publish appends one envelope to the topic list. Exactly one publish call
// per invocation; failures propagate to the caller.
func (q *Queue) Publish(ctx context.Context, topic string, env broker.Envelope) error {
    if env.EnqueuedUnixMs == 0 {
        env.EnqueuedUnixMs = time.Now().UnixMilli()
    }
    raw, err := q.c.Marshal(env)
    if err != nil {
        return fmt.Errorf("marshal envelope: %w", err)
    }
    if err := q.rdb.LPush(ctx, topic, raw).Err(); err != nil {
        return fmt.Errorf("%w: %v", broker.ErrUnavailable, err)
    }
    return nil
}

// Run consumes topic until ctx is cancelled, delivering each envelope to h
// and acting on the returned disposition. Redelivery bookkeeping goroutines
// are started alongside the consume loop.
func (q *Queue) Run(ctx context.Context, topic string, h broker.Handler) error {
    go q.retryScheduler(ctx, topic)
    go q.reclaimer(ctx, topic)

    processing := topic + processingSuffix + ":" + q.name
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        raw, err := q.rdb.BRPopLPush(ctx, topic, processing, pollTimeout).Result()
        if err == redis.Nil {
            continue
        }
        if err != nil {
            if ctx.Err() != nil {
                return ctx.Err()
            }
            zap.L().Warn("dequeue failed", zap.String("topic", topic), zap.Error(err))
            time.Sleep(time.Second)
            continue
        }
        q.deliver(ctx, topic, processing, raw, h)
    }
}

func (q *Queue) deliver(ctx context.Context, topic, processing, raw string, h broker.Handler) {
    var env broker.Envelope
    if err := q.c.Unmarshal([]byte(raw), &env); err != nil {
        // Undecodable at the transport layer; it can never succeed.
        zap.L().Error("dropping undecodable envelope", zap.String("topic", topic), zap.Error(err))
        q.ack(ctx, topic, processing, raw)
        return
    }
    env.Attempt++

    // Track the visibility deadline so a crashed worker's delivery is
    // reclaimed by a peer.
    deadline := float64(time.Now().Add(q.cfg.VisibilityTimeout).UnixMilli())
    if err := q.rdb.ZAdd(ctx, topic+deadlineSuffix, &redis.Z{Score: deadline, Member: raw}).Err(); err != nil {
        zap.L().Warn("deadline tracking failed", zap.Error(err))
    }

    disp := h.Handle(ctx, env)
    switch disp {
    case broker.Ack, broker.AckDrop:
        q.ack(ctx, topic, processing, raw)
    case broker.Redeliver:
        q.nack(ctx, topic, processing, raw, env)
    }
}

func (q *Queue) ack(ctx context.Context, topic, processing, raw string) {
    pipe := q.rdb.TxPipeline()
    pipe.LRem(ctx, processing, 1, raw)
    pipe.ZRem(ctx, topic+deadlineSuffix, raw)
    if _, err := pipe.Exec(ctx); err != nil {
        zap.L().Warn("ack failed", zap.Error(err))
    }
}

// nack schedules the envelope for redelivery with exponential backoff, or
// moves it to the dead letter list once attempts are exhausted.
func (q *Queue) nack(ctx context.Context, topic, processing, raw string, env broker.Envelope) {
    q.ack(ctx, topic, processing, raw) // remove the in-flight copy first

    if env.Attempt >= q.cfg.MaxAttempts {
        zap.L().Error("attempts exhausted, dead-lettering",
            zap.String("task_id", env.TaskID), zap.Int("attempt", env.Attempt))
        if err := q.rdb.LPush(ctx, topic+deadSuffix, raw).Err(); err != nil {
            zap.L().Error("dead letter push failed", zap.Error(err))
        }
        return
    }

    next, err := q.c.Marshal(env) // re-marshal to persist the attempt count
    if err != nil {
        zap.L().Error("re-marshal for retry failed", zap.Error(err))
        return
    }
    backoff := q.backoffFor(env.Attempt)
    due := float64(time.Now().Add(backoff).UnixMilli())
    if err := q.rdb.ZAdd(ctx, topic+retrySuffix, &redis.Z{Score: due, Member: next}).Err(); err != nil {
        zap.L().Error("retry schedule failed", zap.String("task_id", env.TaskID), zap.Error(err))
        // fall back to immediate requeue so the message is not lost
        _ = q.rdb.LPush(ctx, topic, next).Err()
        return
    }
    zap.L().Info("scheduled redelivery",
        zap.String("task_id", env.TaskID), zap.Int("attempt", env.Attempt), zap.Duration("backoff", backoff))
}

// backoffFor doubles the base delay per attempt up to the configured cap,
// then adds up to 50% jitter so simultaneous failures spread apart.
func (q *Queue) backoffFor(attempt int) time.Duration {
    backoff := q.cfg.RetryBaseBackoff * time.Duration(1<<uint(attempt-1))
    if q.cfg.RetryMaxBackoff > 0 && backoff > q.cfg.RetryMaxBackoff {
        backoff = q.cfg.RetryMaxBackoff
    }
    backoff += time.Duration(rand.Int63n(int64(backoff/2) + 1))
    return backoff
}

// retryScheduler re-enqueues scheduled-retry members whose due time arrived.
func (q *Queue) retryScheduler(ctx context.Context, topic string) {
    ticker := time.NewTicker(retryScanStep)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
        }
        now := fmt.Sprintf("%d", time.Now().UnixMilli())
        items, err := q.rdb.ZRangeByScore(ctx, topic+retrySuffix, &redis.ZRangeBy{
            Min: "-inf", Max: now, Count: retryScanMax,
        }).Result()
        if err != nil || len(items) == 0 {
            continue
        }
        for _, raw := range items {
            removed, err := q.rdb.ZRem(ctx, topic+retrySuffix, raw).Result()
            if err != nil || removed == 0 {
                continue // another instance claimed it
            }
            if err := q.rdb.LPush(ctx, topic, raw).Err(); err != nil {
                zap.L().Error("retry requeue failed", zap.Error(err))
            }
        }
    }
}

// reclaimer returns deliveries whose visibility deadline passed without an
// acknowledgement, which happens when a worker dies mid-task.
func (q *Queue) reclaimer(ctx context.Context, topic string) {
    ticker := time.NewTicker(reclaimStep)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
        }
        now := fmt.Sprintf("%d", time.Now().UnixMilli())
        items, err := q.rdb.ZRangeByScore(ctx, topic+deadlineSuffix, &redis.ZRangeBy{
            Min: "-inf", Max: now, Count: retryScanMax,
        }).Result()
        if err != nil || len(items) == 0 {
            continue
        }
        processing := topic + processingSuffix + ":" + q.name
        for _, raw := range items {
            removed, err := q.rdb.ZRem(ctx, topic+deadlineSuffix, raw).Result()
            if err != nil || removed == 0 {
                continue
            }
            q.rdb.LRem(ctx, processing, 1, raw)
            if err := q.rdb.LPush(ctx, topic, raw).Err(); err != nil {
                zap.L().Error("reclaim requeue failed", zap.Error(err))
            } else {
                zap.L().Warn("reclaimed stuck delivery", zap.String("topic", topic))
            }
        }
    }
}
