package remote

import (
    "context"
    "time"

    "github.com/burnsgregm/TbD-V6/pkg/schema"
)

// Telemetry fetches the machine-state snapshot from the IoT hub.
type Telemetry struct{ c client }

// NewTelemetry builds a client for the telemetry endpoint.
func NewTelemetry(baseURL string, timeout time.Duration) *Telemetry {
    return &Telemetry{c: newClient(baseURL, timeout)}
}

func (t *Telemetry) Snapshot(ctx context.Context) (schema.TelemetryContext, error) {
    var out schema.TelemetryContext
    if err := t.c.getJSON(ctx, "", &out); err != nil {
        return schema.DefaultTelemetry(), err
    }
    return out, nil
}
