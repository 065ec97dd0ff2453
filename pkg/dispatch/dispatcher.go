// Package dispatch turns a submitted TaskSpec into a durable broker message.
// No processing logic lives here.
package dispatch

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "github.com/burnsgregm/TbD-V6/pkg/broker"
    "github.com/burnsgregm/TbD-V6/pkg/codec"
    "github.com/burnsgregm/TbD-V6/pkg/schema"
)

// ErrValidation rejects a malformed TaskSpec at submission; the task is not
// retried.
var ErrValidation = errors.New("invalid task spec")

// ErrDispatch reports a publish failure. The caller decides whether to
// retry the submission; the dispatcher never retries internally.
var ErrDispatch = errors.New("dispatch failed")

// Status values returned with a submission result.
const (
    // StatusQueued means the envelope reached the broker.
    StatusQueued = "queued"
    // StatusAcceptedLocal means the spec was validated but the broker is
    // unavailable; nothing was dispatched.
    StatusAcceptedLocal = "accepted-local"
)

// Result is the synchronous answer to a submission. Processing is
// asynchronous; completion is signalled on the completion topic only.
type Result struct {
    Status string `json:"status"`
    TaskID string `json:"task_id"`
}

// Dispatcher validates specs, assigns identities, and publishes envelopes.
// A nil publisher puts the dispatcher into degraded local-accept mode.
type Dispatcher struct {
    pub   broker.Publisher
    topic string
    c     codec.Codec
}

// New builds a dispatcher publishing to topic. pub may be nil when the
// broker was unreachable at startup.
func New(pub broker.Publisher, topic string, c codec.Codec) *Dispatcher {
    return &Dispatcher{pub: pub, topic: topic, c: c}
}

// Submit validates spec, resolves task identity, and publishes exactly one
// envelope. The returned task id equals the client-supplied one when
// present, otherwise a freshly generated identifier.
func (d *Dispatcher) Submit(ctx context.Context, spec schema.TaskSpec) (Result, error) {
    if err := validate(spec); err != nil {
        return Result{}, err
    }
    if spec.TaskID == "" {
        spec.TaskID = uuid.NewString()
    }
    traceID := uuid.NewString()

    zap.L().Info("dispatching task",
        zap.String("task_id", spec.TaskID), zap.String("trace_id", traceID))

    if d.pub == nil {
        // Broker unreachable at startup: accept and report, do not crash.
        zap.L().Warn("broker unavailable, task accepted locally only",
            zap.String("task_id", spec.TaskID))
        return Result{Status: StatusAcceptedLocal, TaskID: spec.TaskID}, nil
    }

    payload, err := d.c.Marshal(spec)
    if err != nil {
        return Result{}, fmt.Errorf("%w: encode spec: %v", ErrDispatch, err)
    }
    env := broker.Envelope{
        TaskID:         spec.TaskID,
        TraceID:        traceID,
        Payload:        payload,
        EnqueuedUnixMs: time.Now().UnixMilli(),
    }
    if err := d.pub.Publish(ctx, d.topic, env); err != nil {
        return Result{}, fmt.Errorf("%w: %v", ErrDispatch, err)
    }
    return Result{Status: StatusQueued, TaskID: spec.TaskID}, nil
}

func validate(spec schema.TaskSpec) error {
    switch {
    case spec.ClientID == "":
        return fmt.Errorf("%w: client_id is required", ErrValidation)
    case spec.SourceURI == "":
        return fmt.Errorf("%w: source_uri is required", ErrValidation)
    case spec.OutputLocation == "":
        return fmt.Errorf("%w: output_location is required", ErrValidation)
    }
    return nil
}
