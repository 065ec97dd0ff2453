package worker

import (
    "errors"

    "github.com/burnsgregm/TbD-V6/pkg/broker"
)

// Pipeline error taxonomy. Classification is an explicit mapping from these
// errors to a broker disposition, not a property of where a panic escapes.
var (
    // ErrMalformedMessage marks an undeserializable delivery. It can never
    // succeed, so it is acknowledged and dropped rather than retried.
    ErrMalformedMessage = errors.New("malformed message")

    // ErrDuplicateTask marks a task id the guard has already completed.
    // Acknowledged as a no-op; never surfaced to a caller.
    ErrDuplicateTask = errors.New("duplicate task")

    // ErrPersistence marks an artifact write failure; redelivered.
    ErrPersistence = errors.New("persistence failed")
)

// Classify maps a pipeline outcome to the broker disposition. Anything
// unrecognized is treated as a transient collaborator failure and left for
// redelivery, because steps after dedupe are pure functions of the TaskSpec
// plus external state and are safe to rerun from scratch.
func Classify(err error) broker.Disposition {
    switch {
    case err == nil:
        return broker.Ack
    case errors.Is(err, ErrMalformedMessage), errors.Is(err, ErrDuplicateTask):
        return broker.AckDrop
    default:
        return broker.Redeliver
    }
}
