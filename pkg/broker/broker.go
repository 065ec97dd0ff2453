// Package broker defines the message contracts between the dispatcher and
// the worker tier. The transport (Redis lists) lives in the redisq
// subpackage; this package is transport-free so workers and tests can be
// wired against fakes.
package broker

import (
    "context"
    "errors"
)

// Envelope is the durable message unit. Payload carries a codec-serialized
// document (TaskSpec on the task topic, CompletionSignal on the completion
// topic); TaskID and TraceID are duplicated outside the payload so audit
// tooling can read them without deserializing it.
type Envelope struct {
    TaskID  string `json:"task_id"`
    TraceID string `json:"trace_id"`
    Payload []byte `json:"payload"`

    // Attempt counts deliveries, starting at 1 on first delivery.
    Attempt int `json:"attempt"`
    // EnqueuedUnixMs records first publish time for latency accounting.
    EnqueuedUnixMs int64 `json:"enqueued_unix_ms"`
}

// Disposition is the explicit retry contract a handler returns for a
// delivered envelope. It replaces "uncaught error means redelivery" with a
// value the broker client acts on.
type Disposition int

const (
    // Ack acknowledges a fully processed message.
    Ack Disposition = iota
    // AckDrop acknowledges a message that can never succeed (malformed
    // payload, duplicate task) so the broker stops redelivering it.
    AckDrop
    // Redeliver leaves the message unacknowledged for another attempt.
    Redeliver
)

func (d Disposition) String() string {
    switch d {
    case Ack:
        return "ack"
    case AckDrop:
        return "ack-drop"
    case Redeliver:
        return "redeliver"
    default:
        return "unknown"
    }
}

// Handler processes one delivered envelope and decides its fate.
type Handler interface {
    Handle(ctx context.Context, env Envelope) Disposition
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, env Envelope) Disposition

func (f HandlerFunc) Handle(ctx context.Context, env Envelope) Disposition { return f(ctx, env) }

// Publisher publishes envelopes to a named topic.
type Publisher interface {
    Publish(ctx context.Context, topic string, env Envelope) error
}

// ErrUnavailable reports that the broker cannot be reached. The dispatcher
// uses it to distinguish "queued locally, not dispatched" from hard failure.
var ErrUnavailable = errors.New("broker unavailable")
